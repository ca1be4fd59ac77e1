package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/auth"
)

// UserIDKey is the gin context key holding the authenticated user id (uint).
const UserIDKey = "userID"

// TokenValidator is satisfied by *auth.Service.
type TokenValidator interface {
	ValidateToken(token, tokenType string) (*auth.TokenClaims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware 校验访问令牌并将 userID 注入上下文。
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := tokens.ValidateToken(raw, auth.TokenTypeAccess)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		if logger := LoggerFromContext(c); logger != nil {
			c.Set(slogLoggerKey, logger.With("user_id", claims.UserID))
		}
		c.Next()
	}
}

// MetricsAuth 在配置了 token 时要求抓取方携带 Bearer token，未配置则放行。
func MetricsAuth(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok || got != token {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}
