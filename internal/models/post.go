package models

import "time"

// PostStatus represents the publication state of a post.
type PostStatus string

const (
	PostPublished PostStatus = "PUBLISHED"
	PostDraft     PostStatus = "DRAFT"
)

// Post represents a blog post stored in the posts table.
type Post struct {
	ID              string     `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Content         string     `db:"content" json:"content"`
	AuthorID        string     `db:"author_id" json:"author_id"`
	Status          PostStatus `db:"status" json:"status"`
	Visibility      bool       `db:"visibility" json:"visibility"`
	CommentsEnabled bool       `db:"comments_enabled" json:"comments_enabled"`
	Likes           int64      `db:"likes" json:"likes"`
	Dislikes        int64      `db:"dislikes" json:"dislikes"`
	Views           int64      `db:"views" json:"views"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// PostFilter captures listing criteria for posts.
type PostFilter struct {
	AuthorID string
	Status   *PostStatus
	Page     int
	PageSize int
}
