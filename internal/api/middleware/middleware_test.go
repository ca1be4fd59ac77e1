package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/auth"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token, tokenType string) (*auth.TokenClaims, error) {
	if token == "good" && tokenType == auth.TokenTypeAccess {
		return &auth.TokenClaims{UserID: 42, TokenType: tokenType}, nil
	}
	return nil, errors.New("bad token")
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(
		CorrelationIDMiddleware(),
		SlogLoggerMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))),
		SlogRecovery(),
	)
	return r
}

func TestCorrelationID(t *testing.T) {
	r := newEngine()
	var fromCtx string
	r.GET("/", func(c *gin.Context) {
		fromCtx = CorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(CorrelationIDHeader); got != "abc-123" || fromCtx != "abc-123" {
		t.Fatalf("header=%q ctx=%q", got, fromCtx)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := w.Header().Get(CorrelationIDHeader); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}

func TestAuthMiddleware(t *testing.T) {
	r := newEngine()
	r.GET("/me", AuthMiddleware(stubValidator{}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.MustGet(UserIDKey)})
	})

	cases := map[string]int{
		"":            http.StatusUnauthorized,
		"Bearer":      http.StatusUnauthorized,
		"Basic good":  http.StatusUnauthorized,
		"Bearer bad":  http.StatusUnauthorized,
		"Bearer good": http.StatusOK,
		"bearer good": http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("%q: got %d want %d", header, w.Code, want)
		}
	}
}

func TestMetricsAuth(t *testing.T) {
	r := newEngine()
	r.GET("/open", MetricsAuth(""), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/closed", MetricsAuth("secret"), func(c *gin.Context) { c.Status(http.StatusOK) })

	check := func(path, header string, want int) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("%s %q: got %d want %d", path, header, w.Code, want)
		}
	}
	check("/open", "", http.StatusOK)
	check("/closed", "", http.StatusUnauthorized)
	check("/closed", "Bearer nope", http.StatusUnauthorized)
	check("/closed", "Bearer secret", http.StatusOK)
}

func TestSlogRecovery(t *testing.T) {
	r := newEngine()
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", w.Code)
	}
}
