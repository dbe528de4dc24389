package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/blog-platform-api/internal/models"
)

func TestCreatePost(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectExec("INSERT INTO posts").WillReturnResult(sqlmock.NewResult(1, 1))

	post := &models.Post{Title: "Hello", Content: "World", AuthorID: "u1", Status: models.PostPublished, Visibility: true}
	err := repo.Create(context.Background(), post)
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPosts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "content", "author_id", "status", "visibility", "comments_enabled", "likes", "dislikes", "views", "created_at", "updated_at"}).
		AddRow("p1", "Hello", "World", "u1", string(models.PostPublished), true, true, int64(0), int64(0), int64(0), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, content, author_id, status, visibility, comments_enabled, likes, dislikes, views, created_at, updated_at FROM posts WHERE visibility = TRUE")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts WHERE visibility = TRUE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	posts, total, err := repo.List(context.Background(), models.PostFilter{})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePost(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "p1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
