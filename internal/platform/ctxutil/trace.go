package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type traceKey struct{}

// Trace identifies one inbound request across logs and the realtime stream.
type Trace struct {
	TraceID   string
	RequestID string
}

func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

func TraceFrom(ctx context.Context) (Trace, bool) {
	if ctx == nil {
		return Trace{}, false
	}
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}

// LogFields returns the request-scoped key/value pairs carried by ctx:
// trace and request ids plus the tenant and user of the caller.
func LogFields(ctx context.Context) []any {
	var kv []any
	if t, ok := TraceFrom(ctx); ok {
		if t.TraceID != "" {
			kv = append(kv, "trace_id", t.TraceID)
		}
		if t.RequestID != "" {
			kv = append(kv, "request_id", t.RequestID)
		}
	}
	if rd := GetRequestData(ctx); rd != nil {
		if rd.TenantID != uuid.Nil {
			kv = append(kv, "tenant_id", rd.TenantID.String())
		}
		if rd.UserID != uuid.Nil {
			kv = append(kv, "user_id", rd.UserID.String())
		}
	}
	return kv
}
