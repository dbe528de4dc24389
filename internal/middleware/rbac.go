package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/token"
	appErrors "github.com/noah-isme/blog-platform-api/pkg/errors"
	"github.com/noah-isme/blog-platform-api/pkg/response"
)

// RoleSelf is a pseudo-role granting access when the route's :id
// parameter matches the caller's own user ID.
const RoleSelf = "SELF"

// Allowed reports whether the claims satisfy one of the allowed roles,
// or own the target resource when SELF is among them.
func Allowed(claims *token.Claims, targetID string, allowed ...string) bool {
	if claims == nil {
		return false
	}
	for _, a := range allowed {
		if a == RoleSelf {
			if targetID != "" && targetID == claims.UserID {
				return true
			}
			continue
		}
		if models.UserRole(a) == claims.Role {
			return true
		}
	}
	return false
}

// RBAC enforces role-based access control for routes. Anonymous
// requests get 401, authenticated requests without a matching role 403.
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*token.Claims)

		if !Allowed(claims, c.Param("id"), allowed...) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// RequireAuth only demands a valid identity, any role.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextUserKey); !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
