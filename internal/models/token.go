package models

import "time"

// TokenPair is the ledger record for one issued access/refresh token
// pair. Rows are never deleted; revocation flips LoggedOut exactly once.
type TokenPair struct {
	ID           int64      `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	AccessToken  string     `db:"access_token" json:"access_token"`
	RefreshToken string     `db:"refresh_token" json:"refresh_token"`
	LoggedOut    bool       `db:"logged_out" json:"logged_out"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	RevokedAt    *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}
