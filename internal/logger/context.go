package logger

import "context"

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped logging fields, adapted from the
// teacher's LogContext (trimmed to client-relevant fields: a ZK
// client has connections and sessions, not shares or NFS auth
// flavors).
type LogContext struct {
	ConnectionID uint64
	SessionID    int64
	Endpoint     string
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil if absent.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}
