package agent

import "context"

type contextKey int

const contextIDKey contextKey = iota

// ContextWithContextID records the A2A context a run belongs to so tools and
// observers can attribute their work.
func ContextWithContextID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextIDKey, id)
}

func ContextIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextIDKey).(string); ok {
		return v
	}
	return ""
}
