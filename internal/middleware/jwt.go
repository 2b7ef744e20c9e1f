package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/knowhub-ai/knowhub/internal/pkg/errcode"
	"github.com/knowhub-ai/knowhub/internal/pkg/jwt"
	"github.com/knowhub-ai/knowhub/internal/pkg/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextTenantIDKey = "tenant_id"
	ContextRoleKey     = "role"
)

const RoleAdmin = "admin"

func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextTenantIDKey, claims.TenantID)
		if claims.Role != "" {
			c.Set(ContextRoleKey, claims.Role)
		}
		c.Next()
	}
}

// RequireAdmin guards document management routes; it must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRoleKey) != RoleAdmin {
			response.Error(c, errcode.ErrForbidden, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
