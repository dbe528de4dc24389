package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-platform-api/internal/middleware"
	"github.com/noah-isme/blog-platform-api/internal/token"
)

func claimsFromContext(c *gin.Context) *token.Claims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*token.Claims)
	if !ok {
		return nil
	}
	return claims
}

func requestMeta(c *gin.Context) (ip, userAgent string) {
	return c.ClientIP(), c.GetHeader("User-Agent")
}
