package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveReconcile(t *testing.T) {
	ObserveSave("resume", "update", "ok")
	ObserveReconcile("resume.skills", 2, 0, 1)

	if got := testutil.ToFloat64(documentSaves.WithLabelValues("resume", "update", "ok")); got < 1 {
		t.Fatalf("saves = %v", got)
	}
	if got := testutil.ToFloat64(reconciledRows.WithLabelValues("resume.skills", "delete")); got != 2 {
		t.Fatalf("deleted = %v", got)
	}
	if got := testutil.ToFloat64(reconciledRows.WithLabelValues("resume.skills", "update")); got != 0 {
		t.Fatalf("updated = %v", got)
	}
}

func TestAsynqMiddlewareOutcome(t *testing.T) {
	failing := AsynqMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		return errors.New("boom")
	}))
	if err := failing.ProcessTask(context.Background(), asynq.NewTask("test:fail", nil)); err == nil {
		t.Fatal("error must pass through")
	}
	if got := testutil.ToFloat64(tasksProcessed.WithLabelValues("test:fail", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
	if got := testutil.ToFloat64(tasksInProgress.WithLabelValues("test:fail")); got != 0 {
		t.Fatalf("in progress = %v", got)
	}
}

func TestGinMiddlewareFoldsUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/items/1", "/items/2", "/random/abc"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(httpTotal.WithLabelValues("GET", "/items/:id", "200")); got != 2 {
		t.Fatalf("matched = %v", got)
	}
	if got := testutil.ToFloat64(httpTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unmatched = %v", got)
	}
}
