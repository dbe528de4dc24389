package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/blog-platform-api/internal/models"
)

// Decode failure modes. Callers normalise both to a generic 401 at the
// transport boundary.
var (
	ErrMalformed = errors.New("token is malformed")
	ErrExpired   = errors.New("token is expired")
)

// Claims is the signed payload carried by both access and refresh
// tokens. The subject is the user's email.
type Claims struct {
	UserID string          `json:"user_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Codec mints and verifies HS256 tokens. The signing secret is injected
// at construction; there is no package-level state.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec builds a codec around the shared signing secret.
func NewCodec(secret, issuer string) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer}
}

// Mint issues a signed token for the user with the given lifetime.
func (c *Codec) Mint(user *models.User, ttl time.Duration) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps tokens unique even when two are minted
			// within the same second for the same user.
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks signature and expiry and returns the claims. Signature
// and expiry are verifiable without any store lookup; liveness is not
// and must be checked against the ledger separately.
func (c *Codec) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}

// Subject extracts the subject without verifying the signature. Used
// only to locate the candidate identity before a full Verify; never
// proof of authenticity or liveness.
func (c *Codec) Subject(raw string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, &Claims{})
	if err != nil {
		return "", ErrMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", ErrMalformed
	}

	return claims.Subject, nil
}
