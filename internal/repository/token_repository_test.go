package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/blog-platform-api/internal/models"
)

func TestCreatePair(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectQuery("INSERT INTO token_pairs").
		WithArgs("u1", "access", "refresh", false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	pair := &models.TokenPair{UserID: "u1", AccessToken: "access", RefreshToken: "refresh"}
	err := repo.CreatePair(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, int64(42), pair.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByAccessToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "access_token", "refresh_token", "logged_out", "created_at", "revoked_at"}).
		AddRow(int64(1), "u1", "access", "refresh", false, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, access_token, refresh_token, logged_out, created_at, revoked_at FROM token_pairs WHERE access_token = $1 LIMIT 1")).
		WithArgs("access").
		WillReturnRows(rows)

	pair, err := repo.FindByAccessToken(context.Background(), "access")
	require.NoError(t, err)
	assert.False(t, pair.LoggedOut)
	assert.Equal(t, "u1", pair.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByRefreshTokenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, access_token, refresh_token, logged_out, created_at, revoked_at FROM token_pairs WHERE refresh_token = $1 LIMIT 1")).
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByRefreshToken(context.Background(), "unknown")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAllForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE token_pairs SET logged_out = TRUE, revoked_at = $2 WHERE user_id = $1 AND logged_out = FALSE")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.RevokeAllForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
