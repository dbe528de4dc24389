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

// PostHandler handles blog post endpoints.
type PostHandler struct {
	service *service.PostService
}

// NewPostHandler creates a new post handler.
func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{service: svc}
}

// List godoc
// @Summary List posts
// @Description List visible posts with pagination
// @Tags Posts
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param author query string false "Author filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /posts [get]
func (h *PostHandler) List(c *gin.Context) {
	var filter models.PostFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.AuthorID = c.Query("author")
	if status := c.Query("status"); status != "" {
		s := models.PostStatus(status)
		filter.Status = &s
	}

	posts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, posts, pagination)
}

// Get godoc
// @Summary Get post
// @Description Get post detail
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, post, nil)
}

// Create godoc
// @Summary Create post
// @Description Publish a new post authored by the caller
// @Tags Posts
// @Accept json
// @Produce json
// @Param payload body service.CreatePostRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}

	ip, userAgent := requestMeta(c)
	post, err := h.service.Create(c.Request.Context(), req, claims, models.LoginRequest{IP: ip, UserAgent: userAgent})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, post)
}

// Update godoc
// @Summary Update post
// @Description Edit a post; only the author or an admin may edit
// @Tags Posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body service.UpdatePostRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id} [put]
func (h *PostHandler) Update(c *gin.Context) {
	var req service.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}

	ip, userAgent := requestMeta(c)
	post, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c), models.LoginRequest{IP: ip, UserAgent: userAgent})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, post, nil)
}

// Delete godoc
// @Summary Delete post
// @Description Remove a post; only the author or an admin may delete
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	ip, userAgent := requestMeta(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c), models.LoginRequest{IP: ip, UserAgent: userAgent}); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
