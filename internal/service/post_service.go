package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/token"
	appErrors "github.com/noah-isme/blog-platform-api/pkg/errors"
)

const postListCachePrefix = "posts:list"

type postRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreatePostRequest payload for publishing a post.
type CreatePostRequest struct {
	Title           string            `json:"title" validate:"required"`
	Content         string            `json:"content"`
	Status          models.PostStatus `json:"status" validate:"omitempty,oneof=PUBLISHED DRAFT"`
	CommentsEnabled *bool             `json:"comments_enabled"`
}

// UpdatePostRequest payload for editing a post.
type UpdatePostRequest struct {
	Title           string            `json:"title" validate:"required"`
	Content         string            `json:"content"`
	Status          models.PostStatus `json:"status" validate:"omitempty,oneof=PUBLISHED DRAFT"`
	Visibility      *bool             `json:"visibility"`
	CommentsEnabled *bool             `json:"comments_enabled"`
}

type cachedPostList struct {
	Posts []models.Post `json:"posts"`
	Total int           `json:"total"`
}

// PostService handles blog post workflows. Listings are cached in Redis
// and invalidated on every write.
type PostService struct {
	repo      postRepository
	cache     listCache
	validator *validator.Validate
	logger    *zap.Logger
	audit     *AuditService
	metrics   *MetricsService
	cacheTTL  time.Duration
}

// NewPostService creates an instance of PostService.
func NewPostService(repo postRepository, cache listCache, validate *validator.Validate, logger *zap.Logger, audit *AuditService, metrics *MetricsService, cacheTTL time.Duration) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PostService{repo: repo, cache: cache, validator: validate, logger: logger, audit: audit, metrics: metrics, cacheTTL: cacheTTL}
}

// Create publishes a new post authored by the caller.
func (s *PostService) Create(ctx context.Context, req CreatePostRequest, actor *token.Claims, meta models.LoginRequest) (*models.Post, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	status := req.Status
	if status == "" {
		status = models.PostPublished
	}
	commentsEnabled := true
	if req.CommentsEnabled != nil {
		commentsEnabled = *req.CommentsEnabled
	}

	post := &models.Post{
		Title:           req.Title,
		Content:         req.Content,
		AuthorID:        actor.UserID,
		Status:          status,
		Visibility:      true,
		CommentsEnabled: commentsEnabled,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}

	s.invalidateListCache(ctx)
	s.recordAudit(actor, models.AuditActionPostCreate, post.ID, nil, meta)

	return post, nil
}

// Get returns a post by ID.
func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	return post, nil
}

// List returns visible posts, served from cache when possible.
func (s *PostService) List(ctx context.Context, filter models.PostFilter) ([]models.Post, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	key := listCacheKey(filter, page, pageSize)

	if s.cache != nil {
		start := time.Now()
		var cached cachedPostList
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return cached.Posts, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: cached.Total}, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("post list cache read failed", zap.Error(err))
		}
	}

	queryStart := time.Now()
	posts, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("posts_list", time.Since(queryStart))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedPostList{Posts: posts, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("post list cache write failed", zap.Error(err))
		}
	}

	return posts, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update edits a post. Only the author or an admin may edit.
func (s *PostService) Update(ctx context.Context, id string, req UpdatePostRequest, actor *token.Claims, meta models.LoginRequest) (*models.Post, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	if !canModify(actor, post) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not the author of this post")
	}

	post.Title = req.Title
	post.Content = req.Content
	if req.Status != "" {
		post.Status = req.Status
	}
	if req.Visibility != nil {
		post.Visibility = *req.Visibility
	}
	if req.CommentsEnabled != nil {
		post.CommentsEnabled = *req.CommentsEnabled
	}

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update post")
	}

	s.invalidateListCache(ctx)
	s.recordAudit(actor, models.AuditActionPostUpdate, post.ID, nil, meta)

	return post, nil
}

// Delete removes a post. Only the author or an admin may delete.
func (s *PostService) Delete(ctx context.Context, id string, actor *token.Claims, meta models.LoginRequest) error {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	if !canModify(actor, post) {
		return appErrors.Clone(appErrors.ErrForbidden, "not the author of this post")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete post")
	}

	s.invalidateListCache(ctx)
	s.recordAudit(actor, models.AuditActionPostDelete, post.ID, nil, meta)

	return nil
}

func canModify(actor *token.Claims, post *models.Post) bool {
	if actor == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || actor.UserID == post.AuthorID
}

func listCacheKey(filter models.PostFilter, page, pageSize int) string {
	status := ""
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	return fmt.Sprintf("%s:page=%d:size=%d:author=%s:status=%s", postListCachePrefix, page, pageSize, filter.AuthorID, status)
}

func (s *PostService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, postListCachePrefix+":*"); err != nil {
		s.logger.Warn("post list cache invalidation failed", zap.Error(err))
	}
}

func (s *PostService) recordAudit(actor *token.Claims, action, resourceID string, newValues []byte, meta models.LoginRequest) {
	if s.audit == nil {
		return
	}
	if newValues == nil {
		newValues, _ = json.Marshal(map[string]interface{}{"id": resourceID})
	}
	var actorID *string
	if actor != nil {
		actorID = &actor.UserID
	}
	s.audit.Record(&models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "posts",
		ResourceID: &resourceID,
		NewValues:  newValues,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
}
