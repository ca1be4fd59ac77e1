package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/database"
)

const refreshTokenCookieName = "refresh_token"

// AuthHandler 处理注册、登录、刷新与退出。
type AuthHandler struct {
	db           *gorm.DB
	authService  *auth.Service
	revocations  auth.Revocations
	cookieDomain string
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.Service, revocations auth.Revocations, cookieDomain string) *AuthHandler {
	return &AuthHandler{
		db:           db,
		authService:  authService,
		revocations:  revocations,
		cookieDomain: strings.TrimSpace(cookieDomain),
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name" binding:"max=128"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Register 创建新用户账号。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	email, err := auth.NormalizeEmail(req.Email)
	if err != nil {
		FieldError(c, http.StatusBadRequest, "email", "invalid email address")
		return
	}
	logger := middleware.LoggerFromContext(c)

	user, err := auth.CreateUser(c.Request.Context(), h.db, email, req.FullName, req.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		logger.Info("register conflict: email already registered")
		FieldError(c, http.StatusConflict, "email", "email already registered")
		return
	}
	if err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email, "full_name": user.FullName})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login 校验口令并返回 Token。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	logger := middleware.LoggerFromContext(c)

	user, err := auth.Authenticate(c.Request.Context(), h.db, req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		logger.Info("login failed")
		Unauthorized(c)
		return
	}
	if err != nil {
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
	h.replyWithTokenPair(c, tokenPair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 校验刷新令牌并颁发新的 TokenPair，旧令牌随即作废。
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	claims, ok := h.validRefreshToken(c)
	if !ok {
		return
	}

	// 先作废旧刷新令牌，并发请求中只有一个能完成轮换。
	first, err := h.revocations.Revoke(ctx, claims.ID, remaining(claims.ExpiresAt, h.authService.RefreshTokenTTL()))
	if err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if !first {
		logger.Warn("refresh token reused", slog.Uint64("user_id", uint64(claims.UserID)))
		Unauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		logger.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair)
}

// Logout 将刷新令牌加入黑名单，防止继续使用。
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := h.validRefreshToken(c)
	if !ok {
		return
	}

	if _, err := h.revocations.Revoke(c.Request.Context(), claims.ID, remaining(claims.ExpiresAt, h.authService.RefreshTokenTTL())); err != nil {
		middleware.LoggerFromContext(c).Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 清除 Cookie。
	h.writeRefreshCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

// validRefreshToken 校验签名、类型与黑名单，失败时已写出响应。
func (h *AuthHandler) validRefreshToken(c *gin.Context) (*auth.TokenClaims, bool) {
	logger := middleware.LoggerFromContext(c)

	raw := h.extractRefreshToken(c)
	if raw == "" {
		Unauthorized(c)
		return nil, false
	}

	claims, err := h.authService.ValidateToken(raw, auth.TokenTypeRefresh)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		Unauthorized(c)
		return nil, false
	}

	revoked, err := h.revocations.IsRevoked(c.Request.Context(), claims.ID)
	if err != nil {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Unavailable(c, "session store unavailable")
		return nil, false
	}
	if revoked {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return nil, false
	}
	return claims, true
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, tokenPair auth.TokenPair) {
	h.writeRefreshCookie(c, tokenPair.RefreshToken, int(h.authService.RefreshTokenTTL().Seconds()))
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: tokenPair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.AccessTokenTTL().Seconds()),
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) writeRefreshCookie(c *gin.Context, value string, maxAge int) {
	cookie := &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.cookieDomain,
	}
	if maxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	}
	http.SetCookie(c.Writer, cookie)
}

// remaining 返回令牌剩余有效期，作为黑名单条目的 TTL。
func remaining(expiresAt *jwt.NumericDate, fallback time.Duration) time.Duration {
	if expiresAt == nil {
		return fallback
	}
	if ttl := time.Until(expiresAt.Time); ttl > 0 {
		return ttl
	}
	return time.Second
}

func isHTTPSRequest(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}
