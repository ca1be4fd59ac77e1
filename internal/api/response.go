package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/document"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// FieldError 返回带出错字段的错误体：{"error": msg, "field": field}。
func FieldError(c *gin.Context, status int, field, msg string) {
	c.JSON(status, gin.H{"error": msg, "field": field})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)            { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string)  { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)   { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)    { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)    { Error(c, http.StatusConflict, msg) }
func Unavailable(c *gin.Context, msg string) { Error(c, http.StatusServiceUnavailable, msg) }
func Internal(c *gin.Context, msg string)    { Error(c, http.StatusInternalServerError, msg) }

// respondDocumentError maps document service errors onto HTTP statuses.
func respondDocumentError(c *gin.Context, err error) {
	var (
		validationErr *document.ValidationError
		conflictErr   *document.ConflictError
		transientErr  *document.TransientError
	)
	logger := middleware.LoggerFromContext(c)

	switch {
	case errors.Is(err, document.ErrNotFoundOrUnauthorized):
		NotFound(c, "document not found")
	case errors.As(err, &validationErr):
		FieldError(c, http.StatusBadRequest, validationErr.Field, validationErr.Message)
	case errors.As(err, &conflictErr):
		FieldError(c, http.StatusConflict, conflictErr.Field, conflictErr.Message)
	case errors.As(err, &transientErr):
		logger.Warn("document store unavailable", slog.Any("error", err))
		Unavailable(c, "temporarily unavailable, retry")
	default:
		logger.Error("document operation failed", slog.Any("error", err))
		Internal(c, "internal error")
	}
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

// requireUser 取出当前用户，未登录时直接返回 401。
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
	}
	return userID, ok
}
