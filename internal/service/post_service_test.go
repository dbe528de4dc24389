package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/token"
	appErrors "github.com/noah-isme/blog-platform-api/pkg/errors"
)

type mockPostRepo struct {
	posts     map[string]*models.Post
	listCalls int
}

func (m *mockPostRepo) Create(ctx context.Context, post *models.Post) error {
	post.ID = fmt.Sprintf("p%d", len(m.posts)+1)
	post.CreatedAt = time.Now().UTC()
	post.UpdatedAt = post.CreatedAt
	m.posts[post.ID] = post
	return nil
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*models.Post, error) {
	post, ok := m.posts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return post, nil
}

func (m *mockPostRepo) List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error) {
	m.listCalls++
	out := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockPostRepo) Update(ctx context.Context, post *models.Post) error {
	m.posts[post.ID] = post
	return nil
}

func (m *mockPostRepo) Delete(ctx context.Context, id string) error {
	delete(m.posts, id)
	return nil
}

type mockListCache struct {
	entries map[string][]byte
	flushes int
}

func (m *mockListCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockListCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockListCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.flushes++
	m.entries = make(map[string][]byte)
	return nil
}

func newTestPostService() (*PostService, *mockPostRepo, *mockListCache) {
	repo := &mockPostRepo{posts: make(map[string]*models.Post)}
	cache := &mockListCache{entries: make(map[string][]byte)}
	svc := NewPostService(repo, cache, nil, zap.NewNop(), nil, nil, 5*time.Minute)
	return svc, repo, cache
}

func authorClaims() *token.Claims {
	return &token.Claims{UserID: "author-1", Role: models.RoleUser}
}

func TestPostServiceCreate(t *testing.T) {
	svc, repo, cache := newTestPostService()

	post, err := svc.Create(context.Background(), CreatePostRequest{Title: "Hello", Content: "World"}, authorClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "author-1", post.AuthorID)
	assert.Equal(t, models.PostPublished, post.Status)
	assert.True(t, post.Visibility)
	assert.True(t, post.CommentsEnabled)
	assert.Contains(t, repo.posts, post.ID)
	assert.Equal(t, 1, cache.flushes)
}

func TestPostServiceListCaches(t *testing.T) {
	svc, repo, _ := newTestPostService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePostRequest{Title: "Hello"}, authorClaims(), models.LoginRequest{})
	require.NoError(t, err)

	posts, pagination, err := svc.List(ctx, models.PostFilter{})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, repo.listCalls)

	// second read is served from cache
	posts, _, err = svc.List(ctx, models.PostFilter{})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 1, repo.listCalls)
}

func TestPostServiceWriteInvalidatesCache(t *testing.T) {
	svc, repo, _ := newTestPostService()
	ctx := context.Background()

	post, err := svc.Create(ctx, CreatePostRequest{Title: "Hello"}, authorClaims(), models.LoginRequest{})
	require.NoError(t, err)

	_, _, err = svc.List(ctx, models.PostFilter{})
	require.NoError(t, err)

	_, err = svc.Update(ctx, post.ID, UpdatePostRequest{Title: "Edited"}, authorClaims(), models.LoginRequest{})
	require.NoError(t, err)

	_, _, err = svc.List(ctx, models.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestPostServiceListTimesRepositoryQuery(t *testing.T) {
	repo := &mockPostRepo{posts: make(map[string]*models.Post)}
	metrics := NewMetricsService()
	svc := NewPostService(repo, nil, nil, zap.NewNop(), nil, metrics, 5*time.Minute)

	_, _, err := svc.List(context.Background(), models.PostFilter{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `db_query_duration_seconds_count{query="posts_list"} 1`)
}

func TestPostServiceUpdateAuthorOnly(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()

	post, err := svc.Create(ctx, CreatePostRequest{Title: "Hello"}, authorClaims(), models.LoginRequest{})
	require.NoError(t, err)

	other := &token.Claims{UserID: "other", Role: models.RoleUser}
	_, err = svc.Update(ctx, post.ID, UpdatePostRequest{Title: "Hijacked"}, other, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	admin := &token.Claims{UserID: "admin", Role: models.RoleAdmin}
	updated, err := svc.Update(ctx, post.ID, UpdatePostRequest{Title: "Moderated"}, admin, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Moderated", updated.Title)
}

func TestPostServiceDelete(t *testing.T) {
	svc, repo, _ := newTestPostService()
	ctx := context.Background()

	post, err := svc.Create(ctx, CreatePostRequest{Title: "Hello"}, authorClaims(), models.LoginRequest{})
	require.NoError(t, err)

	err = svc.Delete(ctx, post.ID, &token.Claims{UserID: "other", Role: models.RoleGuest}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Delete(ctx, post.ID, authorClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.NotContains(t, repo.posts, post.ID)

	err = svc.Delete(ctx, post.ID, authorClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
