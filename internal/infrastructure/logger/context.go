package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey     contextKey = "logger"
	requestIDKey  contextKey = "request_id"
	merchantIDKey contextKey = "merchant_id"
)

// WithContext returns a new context carrying l
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger from ctx, or a no-op logger when absent
func FromContext(ctx context.Context) *zap.Logger {
	l, ok := ctx.Value(loggerKey).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}
	return l
}

// WithRequestID stores the request ID in ctx and enriches the context logger
func WithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		ctx = WithContext(ctx, l.With(zap.String("request_id", requestID)))
	}
	return ctx
}

// WithMerchantID stores the merchant ID in ctx and enriches the context logger
func WithMerchantID(ctx context.Context, merchantID string) context.Context {
	ctx = context.WithValue(ctx, merchantIDKey, merchantID)
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		ctx = WithContext(ctx, l.With(zap.String("merchant_id", merchantID)))
	}
	return ctx
}

// GetRequestID retrieves the request ID from ctx
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetMerchantID retrieves the merchant ID from ctx
func GetMerchantID(ctx context.Context) string {
	id, _ := ctx.Value(merchantIDKey).(string)
	return id
}

// GetTraceID returns the trace ID of the span in ctx, or "" without a valid span
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// WithTraceContext adds trace_id and span_id from the span in ctx to l.
// Without a valid span l is returned unchanged.
func WithTraceContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
