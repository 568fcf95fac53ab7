package logger

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// TraceIDKey is both the context key and the log field name for trace ids.
const TraceIDKey contextKey = "trace_id"

// WithTraceID stores traceID in ctx, generating a UUID v4 when it is empty.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id stored in ctx or "".
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}
