package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/token"
	appErrors "github.com/noah-isme/blog-platform-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type tokenLedger interface {
	CreatePair(ctx context.Context, pair *models.TokenPair) error
	FindByAccessToken(ctx context.Context, accessToken string) (*models.TokenPair, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Revoke(ctx context.Context, id int64, revokedAt time.Time) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// AuthConfig defines token lifetimes for authentication flows.
type AuthConfig struct {
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// AuthService orchestrates login, registration, refresh and logout.
type AuthService struct {
	users     authUserRepository
	ledger    tokenLedger
	codec     *token.Codec
	validator *validator.Validate
	logger    *zap.Logger
	audit     *AuditService
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, ledger tokenLedger, codec *token.Codec, validate *validator.Validate, logger *zap.Logger, audit *AuditService, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{users: users, ledger: ledger, codec: codec, validator: validate, logger: logger, audit: audit, config: config}
}

// Login authenticates a user and returns a freshly issued token pair.
// Every successful login revokes all prior pairs for the user, so the
// latest login owns the only live refresh lineage.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenPairResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if user.Status != models.StatusActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	// Two concurrent logins may each revoke the other's fresh pair;
	// the last insert wins and remains the only live session.
	if err := s.ledger.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke previous sessions")
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	s.recordAudit(user.ID, models.AuditActionLogin, req.IP, req.UserAgent, map[string]interface{}{"status": "success"})

	return pair, nil
}

// Register creates a new account and issues tokens immediately, without
// requiring a follow-up login call.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.TokenPairResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	email := strings.ToLower(req.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "user already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         models.RoleGuest,
		Status:       models.StatusActive,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.recordAudit(user.ID, models.AuditActionRegister, req.IP, req.UserAgent, map[string]interface{}{"email": user.Email})

	return pair, nil
}

// Refresh rotates the token pair presented via the bearer refresh token.
// Any validation failure yields the same generic unauthorized error so
// callers cannot distinguish which sub-check failed.
func (s *AuthService) Refresh(ctx context.Context, rawToken string, meta models.LoginRequest) (*models.TokenPairResult, error) {
	if rawToken == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	// The subject is decoded without trusting the token; the full
	// signature and expiry check happens below.
	subject, err := s.codec.Subject(rawToken)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	user, err := s.users.FindByEmail(ctx, subject)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	claims, err := s.codec.Verify(rawToken)
	if err != nil || claims.Subject != user.Email {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	stored, err := s.ledger.FindByRefreshToken(ctx, rawToken)
	if err != nil || stored.LoggedOut || stored.UserID != user.ID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	if err := s.ledger.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke previous sessions")
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.recordAudit(user.ID, models.AuditActionTokenRefresh, meta.IP, meta.UserAgent, map[string]interface{}{"refresh": "rotated"})

	return pair, nil
}

// Logout flips the ledger entry matching the presented access token.
// Missing, garbage or unknown tokens are a no-op; logout never fails.
func (s *AuthService) Logout(ctx context.Context, rawToken string, meta models.LoginRequest) {
	if rawToken == "" {
		return
	}

	stored, err := s.ledger.FindByAccessToken(ctx, rawToken)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to look up token on logout", zap.Error(err))
		}
		return
	}

	if err := s.ledger.Revoke(ctx, stored.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to revoke token on logout", zap.Error(err))
		return
	}

	s.recordAudit(stored.UserID, models.AuditActionLogout, meta.IP, meta.UserAgent, map[string]interface{}{"status": "logout"})
}

// Authorize validates a bearer access token for a single request:
// signature and expiry via the codec, then identity and liveness
// against the store. Returns the claims for the request context.
func (s *AuthService) Authorize(ctx context.Context, rawToken string) (*token.Claims, error) {
	claims, err := s.codec.Verify(rawToken)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}
	if user.Status != models.StatusActive {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	stored, err := s.ledger.FindByAccessToken(ctx, rawToken)
	if err != nil || stored.LoggedOut {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	return claims, nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*models.TokenPairResult, error) {
	accessToken, err := s.codec.Mint(user, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint access token")
	}

	refreshToken, err := s.codec.Mint(user, s.config.RefreshTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint refresh token")
	}

	pair := &models.TokenPair{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		LoggedOut:    false,
	}
	if err := s.ledger.CreatePair(ctx, pair); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist token pair")
	}

	return &models.TokenPairResult{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) recordAudit(userID, action, ip, userAgent string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(values)
	s.audit.Record(&models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  payload,
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
}
