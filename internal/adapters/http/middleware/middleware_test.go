package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/request-scope-service/internal/app"
	appctx "github.com/jsamuelsen/request-scope-service/internal/app/context"
	"github.com/jsamuelsen/request-scope-service/internal/platform/config"
	"github.com/jsamuelsen/request-scope-service/internal/platform/logging"
	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scopeConfig() *config.ScopeConfig {
	return &config.ScopeConfig{
		UserHeader:      "X-User-ID",
		SessionHeader:   "X-Session-ID",
		CounterStrategy: scope.CounterStrategyFresh,
	}
}

func newScopedRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dispatcher := app.NewDispatcher(app.DispatcherConfig{Logger: discardLogger()})

	router := gin.New()
	router.Use(Recovery(discardLogger()), Scope(scopeConfig(), dispatcher))

	return router
}

func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		get        func(*gin.Context) string
		incoming   string
	}{
		{name: "request id generated", middleware: RequestID(), header: HeaderRequestID, get: GetRequestID},
		{name: "request id passed through", middleware: RequestID(), header: HeaderRequestID, get: GetRequestID, incoming: "req-123"},
		{name: "correlation id generated", middleware: CorrelationID(), header: HeaderCorrelationID, get: GetCorrelationID},
		{name: "correlation id passed through", middleware: CorrelationID(), header: HeaderCorrelationID, get: GetCorrelationID, incoming: "corr-456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var captured string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/test", func(c *gin.Context) {
				captured = tt.get(c)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.incoming != "" {
				req.Header.Set(tt.header, tt.incoming)
			}

			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, captured)
			assert.Equal(t, w.Header().Get(tt.header), captured)

			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, captured)
			}
		})
	}
}

func TestGetIDs_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Empty(t, GetRequestID(c))
	assert.Empty(t, GetCorrelationID(c))
}

func TestIDMiddleware_EnrichesContextLogger(t *testing.T) {
	var buf bytes.Buffer

	router := gin.New()
	router.Use(Recovery(slog.New(slog.NewJSONHandler(&buf, nil))), RequestID(), CorrelationID())
	router.GET("/test", func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).InfoContext(c.Request.Context(), "inside handler")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderCorrelationID, "corr-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"correlation_id":"corr-1"`)
}

func TestScope_BindsIdentityFromHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		wantOK  bool
		wantStr string
	}{
		{
			name:    "both headers",
			headers: map[string]string{"X-User-ID": "alice", "X-Session-ID": "sess-alice"},
			wantOK:  true,
			wantStr: "RequestContext{userId='alice', sessionId='sess-alice'}",
		},
		{
			name:    "user only",
			headers: map[string]string{"X-User-ID": "alice"},
			wantOK:  true,
			wantStr: "RequestContext{userId='alice', sessionId='null'}",
		},
		{
			name:    "blank headers are absent",
			headers: map[string]string{"X-User-ID": "  ", "X-Session-ID": ""},
		},
		{
			name: "no headers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got   string
				ok    bool
				inner context.Context
			)

			router := newScopedRouter(t)
			router.GET("/test", func(c *gin.Context) {
				inner = c.Request.Context()

				ec, found := appctx.Current(inner)
				if ok = found; ok {
					got = ec.String()
				}

				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStr, got)
			assert.NotEmpty(t, w.Header().Get(HeaderScopeID))

			_, still := appctx.Current(inner)
			assert.False(t, still, "identity released when the request ends")
		})
	}
}

func TestScope_NoLeakBetweenRequests(t *testing.T) {
	router := newScopedRouter(t)
	router.GET("/whoami", func(c *gin.Context) {
		ec, ok := appctx.Current(c.Request.Context())
		if !ok {
			c.String(http.StatusOK, "none")
			return
		}

		c.String(http.StatusOK, ec.String())
	})

	first := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	first.Header.Set("X-User-ID", "alice")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, first)
	assert.Contains(t, w.Body.String(), "alice")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, "none", w.Body.String())
}

func TestScope_DistinctScopeIDs(t *testing.T) {
	router := newScopedRouter(t)
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	seen := make(map[string]struct{})

	for range 10 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		id := w.Header().Get(HeaderScopeID)
		require.NotEmpty(t, id)

		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestScope_PanicTearsDownBeforeRecovery(t *testing.T) {
	var inner context.Context

	router := newScopedRouter(t)
	router.GET("/boom", func(c *gin.Context) {
		inner = c.Request.Context()
		_, _ = appctx.NextValue(inner)

		panic("handler exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-User-ID", "alice")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")

	_, ok := appctx.Current(inner)
	assert.False(t, ok)

	_, ok = appctx.Counter(inner)
	assert.False(t, ok)
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		skip      []string
		wantLog   bool
		wantLevel string
	}{
		{name: "normal request", path: "/api/test", status: http.StatusOK, wantLog: true, wantLevel: "INFO"},
		{name: "query string", path: "/api/test?customerName=Alice", status: http.StatusOK, wantLog: true, wantLevel: "INFO"},
		{name: "client error", path: "/api/test", status: http.StatusBadRequest, wantLog: true, wantLevel: "WARN"},
		{name: "server error", path: "/api/test", status: http.StatusInternalServerError, wantLog: true, wantLevel: "ERROR"},
		{name: "operational path", path: "/-/live", status: http.StatusOK},
		{name: "skipped path", path: "/metrics", status: http.StatusOK, skip: []string{"/metrics"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			router := gin.New()
			router.Use(Recovery(slog.New(slog.NewJSONHandler(&buf, nil))), Logging(tt.skip...))
			router.GET("/api/test", func(c *gin.Context) { c.Status(tt.status) })
			router.GET("/-/live", func(c *gin.Context) { c.Status(tt.status) })
			router.GET("/metrics", func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, w.Code)

			if !tt.wantLog {
				assert.Empty(t, buf.String())
				return
			}

			assert.Contains(t, buf.String(), "request completed")
			assert.Contains(t, buf.String(), `"level":"`+tt.wantLevel+`"`)
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Run("normal request passes through", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(discardLogger()))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("panicking handler returns 500", func(t *testing.T) {
		var buf bytes.Buffer

		router := gin.New()
		router.Use(Recovery(slog.New(slog.NewJSONHandler(&buf, nil))))
		router.GET("/test", func(*gin.Context) { panic("something went wrong") })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
		assert.Contains(t, buf.String(), "panic recovered")
		assert.Contains(t, buf.String(), "something went wrong")
	})

	t.Run("response already written", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(discardLogger()))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusAccepted, "partial")
			panic("late failure")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "partial", w.Body.String())
	})
}

func TestTimeout_SetsContextDeadline(t *testing.T) {
	var deadline time.Time

	router := gin.New()
	router.Use(Timeout(5 * time.Second))
	router.GET("/test", func(c *gin.Context) {
		deadline, _ = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
}
