package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/service"
	appErrors "github.com/noah-isme/blog-platform-api/pkg/errors"
	"github.com/noah-isme/blog-platform-api/pkg/response"
)

// UserHandler handles user CRUD endpoints.
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description List users with pagination and filtering
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param status query string false "Status filter"
// @Param search query string false "Search term"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var filter models.UserFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if status := c.Query("status"); status != "" {
		s := models.UserStatus(status)
		filter.Status = &s
	}

	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, models.UserInfoList(users), pagination)
}

// Get godoc
// @Summary Get user
// @Description Get user detail
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, models.NewUserInfo(user), nil)
}

// Update godoc
// @Summary Update user
// @Description Update a user's name; admins may also change role and status
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body service.UpdateUserRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	ip, userAgent := requestMeta(c)
	user, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c), models.LoginRequest{IP: ip, UserAgent: userAgent})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, models.NewUserInfo(user), nil)
}

// Delete godoc
// @Summary Delete user
// @Description Soft-delete a user (marks the account inactive)
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	ip, userAgent := requestMeta(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c), models.LoginRequest{IP: ip, UserAgent: userAgent}); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
