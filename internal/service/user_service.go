package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/token"
	appErrors "github.com/noah-isme/blog-platform-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	Name   string             `json:"name" validate:"required"`
	Role   *models.UserRole   `json:"role" validate:"omitempty,oneof=ADMIN USER GUEST"`
	Status *models.UserStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	audit     *AuditService
	metrics   *MetricsService
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger, audit *AuditService, metrics *MetricsService) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger, audit: audit, metrics: metrics}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	queryStart := time.Now()
	users, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("users_list", time.Since(queryStart))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}

	return users, pagination, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Update modifies user attributes. Role and status changes are reserved
// for admins; users editing themselves may only change their name.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actor *token.Claims, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	isAdmin := actor != nil && actor.Role == models.RoleAdmin
	if (req.Role != nil || req.Status != nil) && !isAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may change role or status")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"name": user.Name, "role": user.Role, "status": user.Status})

	user.Name = req.Name
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"name": user.Name, "role": user.Role, "status": user.Status})
	s.recordAudit(actor, models.AuditActionUserUpdate, user.ID, oldPayload, newPayload, meta)

	return user, nil
}

// Delete performs a soft delete (inactive) on a user.
func (s *UserService) Delete(ctx context.Context, id string, actor *token.Claims, meta models.LoginRequest) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"status": user.Status})
	newPayload, _ := json.Marshal(map[string]interface{}{"status": models.StatusInactive})
	s.recordAudit(actor, models.AuditActionUserDelete, user.ID, oldPayload, newPayload, meta)

	return nil
}

func (s *UserService) recordAudit(actor *token.Claims, action, resourceID string, oldValues, newValues []byte, meta models.LoginRequest) {
	if s.audit == nil {
		return
	}
	var actorID *string
	if actor != nil {
		actorID = &actor.UserID
	}
	s.audit.Record(&models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
}
