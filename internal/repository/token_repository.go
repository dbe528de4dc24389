package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/blog-platform-api/internal/models"
)

// TokenRepository is the ledger of issued access/refresh token pairs.
// Pairs are never deleted; revocation flips logged_out exactly once.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new instance of TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// CreatePair inserts a new active token pair and fills in its sequence id.
func (r *TokenRepository) CreatePair(ctx context.Context, pair *models.TokenPair) error {
	if pair.CreatedAt.IsZero() {
		pair.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO token_pairs (user_id, access_token, refresh_token, logged_out, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &pair.ID, query, pair.UserID, pair.AccessToken, pair.RefreshToken, pair.LoggedOut, pair.CreatedAt); err != nil {
		return fmt.Errorf("create token pair: %w", err)
	}
	return nil
}

// FindByAccessToken returns the pair matching the exact access token string.
func (r *TokenRepository) FindByAccessToken(ctx context.Context, token string) (*models.TokenPair, error) {
	const query = `SELECT id, user_id, access_token, refresh_token, logged_out, created_at, revoked_at FROM token_pairs WHERE access_token = $1 LIMIT 1`
	var pair models.TokenPair
	if err := r.db.GetContext(ctx, &pair, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find pair by access token: %w", err)
	}
	return &pair, nil
}

// FindByRefreshToken returns the pair matching the exact refresh token string.
func (r *TokenRepository) FindByRefreshToken(ctx context.Context, token string) (*models.TokenPair, error) {
	const query = `SELECT id, user_id, access_token, refresh_token, logged_out, created_at, revoked_at FROM token_pairs WHERE refresh_token = $1 LIMIT 1`
	var pair models.TokenPair
	if err := r.db.GetContext(ctx, &pair, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find pair by refresh token: %w", err)
	}
	return &pair, nil
}

// Revoke marks a single pair as logged out.
func (r *TokenRepository) Revoke(ctx context.Context, id int64, revokedAt time.Time) error {
	const query = `UPDATE token_pairs SET logged_out = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke token pair: %w", err)
	}
	return nil
}

// RevokeAllForUser flips every still-active pair owned by the user.
// No-op when none exist.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	const query = `UPDATE token_pairs SET logged_out = TRUE, revoked_at = $2 WHERE user_id = $1 AND logged_out = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke token pairs for user: %w", err)
	}
	return nil
}
