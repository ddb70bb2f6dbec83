package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/request-scope-service/internal/platform/logging"
)

// Logging writes one access log line per request through the context
// logger, so it carries the request and correlation ids. The scope id is
// read back from the response header set by Scope. Paths under /-/ and
// skipPaths are not logged.
func Logging(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] || strings.HasPrefix(path, "/-/") {
			c.Next()
			return
		}

		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}

		ctx := c.Request.Context()
		logger := logging.FromContext(ctx).With(
			slog.String("method", c.Request.Method),
			slog.String("path", path),
		)

		logger.DebugContext(ctx, "request started",
			slog.String("client_ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
		)

		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)

		logger.Log(ctx, statusLevel(status), "request completed",
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.Int64("latency_ms", latency.Milliseconds()),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("scope_id", c.Writer.Header().Get(HeaderScopeID)),
		)
	}
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
