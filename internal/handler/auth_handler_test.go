package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/service"
	"github.com/noah-isme/blog-platform-api/internal/token"
)

type authUserStoreMock struct {
	usersByEmail map[string]*models.User
}

func (m *authUserStoreMock) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *authUserStoreMock) Create(ctx context.Context, user *models.User) error {
	user.ID = "new-user"
	m.usersByEmail[user.Email] = user
	return nil
}

func (m *authUserStoreMock) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

type ledgerMock struct {
	nextID int64
	pairs  []*models.TokenPair
}

func (m *ledgerMock) CreatePair(ctx context.Context, pair *models.TokenPair) error {
	m.nextID++
	pair.ID = m.nextID
	m.pairs = append(m.pairs, pair)
	return nil
}

func (m *ledgerMock) FindByAccessToken(ctx context.Context, accessToken string) (*models.TokenPair, error) {
	for _, pair := range m.pairs {
		if pair.AccessToken == accessToken {
			return pair, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *ledgerMock) FindByRefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	for _, pair := range m.pairs {
		if pair.RefreshToken == refreshToken {
			return pair, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *ledgerMock) Revoke(ctx context.Context, id int64, revokedAt time.Time) error {
	for _, pair := range m.pairs {
		if pair.ID == id {
			pair.LoggedOut = true
		}
	}
	return nil
}

func (m *ledgerMock) RevokeAllForUser(ctx context.Context, userID string) error {
	for _, pair := range m.pairs {
		if pair.UserID == userID {
			pair.LoggedOut = true
		}
	}
	return nil
}

func setupAuthServer(t *testing.T) (*gin.Engine, *ledgerMock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &authUserStoreMock{usersByEmail: map[string]*models.User{
		"user@example.com": {ID: "u1", Email: "user@example.com", PasswordHash: string(hash), Role: models.RoleUser, Status: models.StatusActive},
	}}
	ledger := &ledgerMock{}
	codec := token.NewCodec("test-secret", "blog-platform")
	authSvc := service.NewAuthService(users, ledger, codec, nil, zap.NewNop(), nil, service.AuthConfig{
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
	})

	handler := NewAuthHandler(authSvc, 604800)
	router := gin.New()
	auth := router.Group("/api/v1/auth")
	auth.POST("", handler.Login)
	auth.POST("/register", handler.Register)
	auth.POST("/refresh_token", handler.Refresh)
	auth.POST("/logout", handler.Logout)

	return router, ledger
}

func postJSON(router *gin.Engine, path string, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAuthResponse(t *testing.T, rec *httptest.ResponseRecorder) models.AuthResponse {
	t.Helper()
	var res models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func cookieValue(rec *httptest.ResponseRecorder, name string) (string, bool) {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie.Value, true
		}
	}
	return "", false
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	router, _ := setupAuthServer(t)

	rec := postJSON(router, "/api/v1/auth", gin.H{"email": "user@example.com", "password": "password"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeAuthResponse(t, rec)
	require.NotNil(t, res.AccessToken)
	require.NotNil(t, res.RefreshToken)
	assert.Equal(t, "login successful", res.Message)

	access, ok := cookieValue(rec, "accessToken")
	require.True(t, ok)
	assert.Equal(t, *res.AccessToken, access)
	_, ok = cookieValue(rec, "refreshToken")
	assert.True(t, ok)
}

func TestAuthHandlerLoginUnknownEmail(t *testing.T) {
	router, _ := setupAuthServer(t)

	rec := postJSON(router, "/api/v1/auth", gin.H{"email": "nobody@example.com", "password": "password"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	res := decodeAuthResponse(t, rec)
	assert.Nil(t, res.AccessToken)
	assert.Nil(t, res.RefreshToken)
	assert.Equal(t, "user not found", res.Message)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	router, _ := setupAuthServer(t)

	rec := postJSON(router, "/api/v1/auth", gin.H{"email": "user@example.com", "password": "wrong"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	res := decodeAuthResponse(t, rec)
	assert.Nil(t, res.AccessToken)
	assert.Nil(t, res.RefreshToken)
}

func TestAuthHandlerRegister(t *testing.T) {
	router, _ := setupAuthServer(t)

	rec := postJSON(router, "/api/v1/auth/register", gin.H{"name": "New", "email": "new@example.com", "password": "password"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decodeAuthResponse(t, rec)
	require.NotNil(t, res.AccessToken)

	rec = postJSON(router, "/api/v1/auth/register", gin.H{"name": "Dup", "email": "new@example.com", "password": "password"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	res = decodeAuthResponse(t, rec)
	assert.Nil(t, res.AccessToken)
	assert.Equal(t, "user already exists", res.Message)
}

func TestAuthHandlerRefresh(t *testing.T) {
	router, _ := setupAuthServer(t)

	login := postJSON(router, "/api/v1/auth", gin.H{"email": "user@example.com", "password": "password"}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	first := decodeAuthResponse(t, login)

	rec := postJSON(router, "/api/v1/auth/refresh_token", nil, map[string]string{"Authorization": "Bearer " + *first.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decodeAuthResponse(t, rec)
	require.NotNil(t, rotated.AccessToken)
	assert.NotEqual(t, *first.AccessToken, *rotated.AccessToken)

	// the superseded refresh token is rejected with a generic 401
	rec = postJSON(router, "/api/v1/auth/refresh_token", nil, map[string]string{"Authorization": "Bearer " + *first.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	res := decodeAuthResponse(t, rec)
	assert.Nil(t, res.AccessToken)
	assert.Equal(t, "unauthorized", res.Message)
}

func TestAuthHandlerRefreshGarbage(t *testing.T) {
	router, _ := setupAuthServer(t)

	rec := postJSON(router, "/api/v1/auth/refresh_token", nil, map[string]string{"Authorization": "Bearer garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(router, "/api/v1/auth/refresh_token", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLogout(t *testing.T) {
	router, ledger := setupAuthServer(t)

	login := postJSON(router, "/api/v1/auth", gin.H{"email": "user@example.com", "password": "password"}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	res := decodeAuthResponse(t, login)

	rec := postJSON(router, "/api/v1/auth/logout", nil, map[string]string{"Authorization": "Bearer " + *res.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ledger.pairs[0].LoggedOut)

	// cookies are cleared
	for _, cookie := range rec.Result().Cookies() {
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge)
	}

	// garbage logout is still a 200 and clears cookies
	rec = postJSON(router, "/api/v1/auth/logout", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
