package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/token"
	appErrors "github.com/noah-isme/blog-platform-api/pkg/errors"
)

type mockUserRepo struct {
	users   map[string]*models.User
	deleted []string
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	if u, ok := m.users[id]; ok {
		u.Status = models.StatusInactive
	}
	return nil
}

func adminClaims() *token.Claims {
	return &token.Claims{UserID: "admin-1", Role: models.RoleAdmin}
}

func newTestUserService() (*UserService, *mockUserRepo) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Name: "User One", Email: "one@example.com", Role: models.RoleUser, Status: models.StatusActive},
	}}
	return NewUserService(repo, nil, zap.NewNop(), nil, nil), repo
}

func TestUserServiceGet(t *testing.T) {
	svc, _ := newTestUserService()

	user, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "one@example.com", user.Email)

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateName(t *testing.T) {
	svc, repo := newTestUserService()
	self := &token.Claims{UserID: "u1", Role: models.RoleUser}

	updated, err := svc.Update(context.Background(), "u1", UpdateUserRequest{Name: "Renamed"}, self, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "Renamed", repo.users["u1"].Name)
}

func TestUserServiceUpdateRoleRequiresAdmin(t *testing.T) {
	svc, _ := newTestUserService()
	self := &token.Claims{UserID: "u1", Role: models.RoleUser}
	role := models.RoleAdmin

	_, err := svc.Update(context.Background(), "u1", UpdateUserRequest{Name: "User One", Role: &role}, self, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), "u1", UpdateUserRequest{Name: "User One", Role: &role}, adminClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
}

func TestUserServiceDeleteIsSoft(t *testing.T) {
	svc, repo := newTestUserService()

	err := svc.Delete(context.Background(), "u1", adminClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, repo.deleted)
	assert.Equal(t, models.StatusInactive, repo.users["u1"].Status)

	err = svc.Delete(context.Background(), "missing", adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
