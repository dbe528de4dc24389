package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-platform-api/internal/service"
)

// ContextUserKey is the gin context key storing validated token claims.
const ContextUserKey = "currentUser"

// Authenticate attaches claims for a valid bearer token but never blocks
// the request itself. Requests with a missing, malformed or revoked
// token continue anonymously; route guards decide whether anonymous
// access is acceptable.
func Authenticate(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextUserKey); exists {
			c.Next()
			return
		}

		raw := BearerToken(c)
		if raw == "" {
			c.Next()
			return
		}

		claims, err := authService.Authorize(c.Request.Context(), raw)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// BearerToken extracts the token from the Authorization header, or ""
// when the header is absent or not a bearer scheme.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
