package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Provider    trace.TracerProvider // nil uses the global provider
	Enabled     bool
}

// Tracing returns the otelgin span middleware followed by a handler that
// tags the span with the request and merchant IDs. The tagging handler
// runs inside the otelgin span, so the merchant ID set by the group
// middleware is still recorded after c.Next returns.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	var opts []otelgin.Option
	if cfg.Provider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.Provider))
	}
	return []gin.HandlerFunc{
		otelgin.Middleware(cfg.ServiceName, opts...),
		traceAttributes(),
	}
}

func traceAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Next()

		if merchantID := c.GetString(MerchantIDKey); merchantID != "" {
			span.SetAttributes(attribute.String("merchant_id", merchantID))
		}
		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetAttributes(attribute.Int("http.error_status", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		}
	}
}
