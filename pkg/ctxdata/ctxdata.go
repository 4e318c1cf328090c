package ctxdata

import (
	"context"
)

type traceIDKey struct{}
type graderIDKey struct{}

var (
	traceIDKeyInstance  = traceIDKey{}
	graderIDKeyInstance = graderIDKey{}
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKeyInstance, traceID)
}

func GetTraceID(ctx context.Context) (string, bool) {
	v := ctx.Value(traceIDKeyInstance)
	traceID, ok := v.(string)
	return traceID, ok
}

func WithGraderID(ctx context.Context, graderID string) context.Context {
	return context.WithValue(ctx, graderIDKeyInstance, graderID)
}

func GetGraderID(ctx context.Context) (string, bool) {
	v := ctx.Value(graderIDKeyInstance)
	graderID, ok := v.(string)
	return graderID, ok
}
