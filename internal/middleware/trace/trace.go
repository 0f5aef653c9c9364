package trace

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"moneymanager/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID is echoed on every response.
	HeaderRequestID = "X-Request-ID"

	maxIncomingIDLen = 64
)

// Middleware handles request tracing and logging
type Middleware struct {
	logger  *log.Logger
	access  *log.StructuredLogger
	metrics *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *log.Logger) *Middleware {
	logger = logger.WithComponent(log.ComponentHTTP)
	return &Middleware{
		logger:  logger,
		access:  log.NewStructuredLogger(logger),
		metrics: &Metrics{},
	}
}

// Handler assigns a request id, stores it and a request scoped logger in the
// request context and logs the request once it completes.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := incomingRequestID(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		c.Header(HeaderRequestID, requestID)

		ctx := context.WithValue(c.Request.Context(), RequestIDKey, requestID)
		ctx = log.NewContext(ctx, m.logger.With(
			log.FieldRequestID, requestID,
			log.FieldMethod, c.Request.Method,
			log.FieldPath, c.Request.URL.Path,
		))
		c.Request = c.Request.WithContext(ctx)

		atomic.AddInt64(&m.metrics.TotalRequests, 1)

		c.Next()

		duration := time.Since(start)
		atomic.StoreInt64(&m.metrics.AverageResponseTime, duration.Microseconds())

		m.access.LogHTTPEnd(ctx, c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery,
			c.Writer.Status(), duration, c.ClientIP(), requestID)
	}
}

// incomingRequestID accepts a caller supplied id only when it is short and
// printable, so it can be logged verbatim.
func incomingRequestID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxIncomingIDLen {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		AverageResponseTime: atomic.LoadInt64(&m.metrics.AverageResponseTime),
	}
}
