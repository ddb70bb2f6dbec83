package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/request-scope-service/internal/platform/logging"
)

const instrumentationName = "github.com/jsamuelsen/request-scope-service/internal/platform/telemetry"

// traceIDKey matches the gin key read by dto.GetTraceID.
const traceIDKey = "trace_id"

// Metrics are the HTTP server instruments recorded by Middleware.
type Metrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	active   metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	duration, errDuration := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"))
	total, errTotal := meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"))
	active, errActive := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"))

	if err := errors.Join(errDuration, errTotal, errActive); err != nil {
		return nil, err
	}

	return &Metrics{duration: duration, total: total, active: active}, nil
}

// track counts the request as active and returns the function that records
// its outcome once the handler chain has run.
func (m *Metrics) track(ctx context.Context, c *gin.Context) func() {
	start := time.Now()
	route := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", c.FullPath()),
	}

	m.active.Add(ctx, 1, metric.WithAttributes(route...))

	return func() {
		m.active.Add(ctx, -1, metric.WithAttributes(route...))

		attrs := metric.WithAttributes(append(route, attribute.Int("http.status_code", c.Writer.Status()))...)
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.total.Add(ctx, 1, attrs)
	}
}

// Middleware records HTTP metrics. When TracingMiddleware started a span,
// its trace id is stored under "trace_id" in the gin context, added to the
// context logger and echoed as X-Trace-ID.
func Middleware() gin.HandlerFunc {
	metrics, err := NewMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID := sc.TraceID().String()
			c.Set(traceIDKey, traceID)
			c.Header("X-Trace-ID", traceID)

			ctx = logging.WithTraceID(ctx, traceID)
			c.Request = c.Request.WithContext(ctx)
		}

		if metrics == nil {
			c.Next()
			return
		}

		done := metrics.track(ctx, c)
		defer done()

		c.Next()
	}
}

// TracingMiddleware starts a server span per request. Install it before
// Middleware.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}
