package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/blog-platform-api/internal/models"
)

// PostRepository provides database access for blog posts.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new instance of PostRepository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a new post.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	const query = `INSERT INTO posts (id, title, content, author_id, status, visibility, comments_enabled, likes, dislikes, views, created_at, updated_at) VALUES (:id, :title, :content, :author_id, :status, :visibility, :comments_enabled, :likes, :dislikes, :views, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// FindByID returns a post by identifier.
func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	const query = `SELECT id, title, content, author_id, status, visibility, comments_enabled, likes, dislikes, views, created_at, updated_at FROM posts WHERE id = $1 LIMIT 1`
	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return &post, nil
}

// List returns visible posts ordered by creation time, newest first.
func (r *PostRepository) List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error) {
	baseQuery := `FROM posts WHERE visibility = TRUE`
	var args []interface{}

	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		baseQuery += fmt.Sprintf(" AND author_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, title, content, author_id, status, visibility, comments_enabled, likes, dislikes, views, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var posts []models.Post
	if err := r.db.SelectContext(ctx, &posts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	return posts, total, nil
}

// Update updates mutable fields of a post.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()
	const query = `UPDATE posts SET title = :title, content = :content, status = :status, visibility = :visibility, comments_enabled = :comments_enabled, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// Delete removes a post permanently.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM posts WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
