package logger

import (
	"context"

	"go.uber.org/zap"
)

// Field keys shared by request-scoped log lines.
const (
	FieldRequestID      = "request_id"
	FieldMatchRequestID = "match_request_id"
	FieldOperation      = "operation"
	FieldOriginID       = "origin_id"
	FieldEntityID       = "entity_id"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the context logger, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// With returns a context whose logger carries the extra fields.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return ContextWithLogger(ctx, FromContext(ctx).With(fields...))
}

// WithMatch tags the context logger with one matching request: its id, the
// operation and the origin entity it ranks for.
func WithMatch(ctx context.Context, matchRequestID, operation, originID string) context.Context {
	return With(ctx,
		zap.String(FieldMatchRequestID, matchRequestID),
		zap.String(FieldOperation, operation),
		zap.String(FieldOriginID, originID),
	)
}

// WithEntity tags the context logger with the entity being written.
func WithEntity(ctx context.Context, entityID string) context.Context {
	return With(ctx, zap.String(FieldEntityID, entityID))
}
