package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-platform-api/internal/middleware"
	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/service"
	appErrors "github.com/noah-isme/blog-platform-api/pkg/errors"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// AuthHandler wires HTTP endpoints to the auth service. Unlike the
// other handlers it responds with a flat {accessToken, refreshToken,
// message} body instead of the envelope, with null tokens on failure.
type AuthHandler struct {
	service      *service.AuthService
	cookieMaxAge int
}

// NewAuthHandler creates a new handler. cookieMaxAge is in seconds.
func NewAuthHandler(svc *service.AuthService, cookieMaxAge int) *AuthHandler {
	return &AuthHandler{service: svc, cookieMaxAge: cookieMaxAge}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} models.AuthResponse
// @Failure 404 {object} models.AuthResponse
// @Router /auth [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.AuthFailure("invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	pair, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setCookies(c, pair)
	c.JSON(http.StatusOK, models.NewAuthResponse(pair.AccessToken, pair.RefreshToken, "login successful"))
}

// Register godoc
// @Summary Register a new account
// @Description Create an account and immediately issue tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} models.AuthResponse
// @Failure 409 {object} models.AuthResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.AuthFailure("invalid registration payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	pair, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setCookies(c, pair)
	c.JSON(http.StatusCreated, models.NewAuthResponse(pair.AccessToken, pair.RefreshToken, "registration successful"))
}

// Refresh godoc
// @Summary Rotate the token pair
// @Description Exchange a refresh token for a fresh token pair
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} models.AuthResponse
// @Router /auth/refresh_token [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw := middleware.BearerToken(c)
	if raw == "" {
		raw, _ = c.Cookie(refreshTokenCookie)
	}
	meta := models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}

	pair, err := h.service.Refresh(c.Request.Context(), raw, meta)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setCookies(c, pair)
	c.JSON(http.StatusOK, models.NewAuthResponse(pair.AccessToken, pair.RefreshToken, "token refreshed"))
}

// Logout godoc
// @Summary End the current session
// @Description Revoke the presented access token and clear cookies
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.AuthResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	raw := middleware.BearerToken(c)
	if raw == "" {
		raw, _ = c.Cookie(accessTokenCookie)
	}
	meta := models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}

	// Logout is a no-op for unknown or garbage tokens; cookies are
	// cleared either way.
	h.service.Logout(c.Request.Context(), raw, meta)

	h.clearCookies(c)
	c.JSON(http.StatusOK, models.AuthFailure("logout successful"))
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.JSON(appErr.Status, models.AuthFailure(appErr.Message))
}

func (h *AuthHandler) setCookies(c *gin.Context, pair *models.TokenPairResult) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, pair.AccessToken, h.cookieMaxAge, "/", "", true, true)
	c.SetCookie(refreshTokenCookie, pair.RefreshToken, h.cookieMaxAge, "/", "", true, true)
}

func (h *AuthHandler) clearCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", true, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", true, true)
}
