package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for client operations. Trimmed from the teacher's
// NFS/SMB/storage-backend catalogue (internal/telemetry/tracer.go) down
// to the subset a coordination-service client actually has: the wire's
// xid, the endpoint it is talking to, the session it holds, and the
// auth scheme it presented. See DESIGN.md for what got dropped and why.
const (
	// Client/endpoint attributes
	AttrClientAddr = "client.address"
	AttrEndpoint   = "endpoint.address"

	// Protocol attributes
	AttrRPCXID     = "rpc.xid"
	AttrOperation  = "zk.operation"
	AttrPath       = "zk.path"
	AttrStatus     = "zk.status"
	AttrSessionID  = "zk.session_id"
	AttrSessionTO  = "zk.session_timeout_ms"
	AttrWatchType  = "zk.watch_event_type"
	AttrAuthScheme = "auth.scheme"
)

// Span names for client operations.
const (
	// SpanCall marks the enqueue of one Call; internal/session ends it
	// as soon as the request is queued, not when the reply arrives.
	SpanCall = "zk.call"

	// SpanHandshake covers one connect-request/connect-response exchange.
	SpanHandshake = "zk.handshake"

	// SpanSessionState marks a session state machine transition (spec.md
	// §4.2): CONNECTING, ASSOCIATING, CONNECTED, EXPIRED, AUTH_FAILED.
	SpanSessionState = "zk.session.state"

	// SpanWatchDeliver covers a single watch event dispatch (spec.md §4.6).
	SpanWatchDeliver = "zk.watch.deliver"

	// SpanAuth marks the enqueue of one SETAUTH frame (spec.md §4.7);
	// it ends before the server's reply arrives.
	SpanAuth = "zk.auth"
)

// ClientAddr returns an attribute for the client's local address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Endpoint returns an attribute for the server endpoint currently in use.
func Endpoint(addr string) attribute.KeyValue {
	return attribute.String(AttrEndpoint, addr)
}

// RPCXID returns an attribute for the request's transaction id.
func RPCXID(xid int32) attribute.KeyValue {
	return attribute.Int64(AttrRPCXID, int64(xid))
}

// Operation returns an attribute for the operation name (e.g. "getData").
func Operation(name string) attribute.KeyValue {
	return attribute.String(AttrOperation, name)
}

// Path returns an attribute for the znode path an operation targets.
func Path(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

// Status returns an attribute for the reply's error code.
func Status(code int32) attribute.KeyValue {
	return attribute.Int(AttrStatus, int(code))
}

// SessionID returns an attribute for the session identifier.
func SessionID(id int64) attribute.KeyValue {
	return attribute.Int64(AttrSessionID, id)
}

// SessionTimeout returns an attribute for the negotiated session timeout.
func SessionTimeout(ms int32) attribute.KeyValue {
	return attribute.Int64(AttrSessionTO, int64(ms))
}

// WatchType returns an attribute for a delivered watch event's type.
func WatchType(t int32) attribute.KeyValue {
	return attribute.Int(AttrWatchType, int(t))
}

// AuthScheme returns an attribute for an AddAuth scheme name.
func AuthScheme(scheme string) attribute.KeyValue {
	return attribute.String(AttrAuthScheme, scheme)
}

// StartCallSpan starts a span for one Call round trip.
func StartCallSpan(ctx context.Context, operation string, xid int32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Operation(operation), RPCXID(xid)}, attrs...)
	return StartSpan(ctx, SpanCall, trace.WithAttributes(allAttrs...))
}

// StartSessionStateSpan starts a span recording a session state transition.
func StartSessionStateSpan(ctx context.Context, from, to string, sessionID int64) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanSessionState, trace.WithAttributes(
		attribute.String("zk.state.from", from),
		attribute.String("zk.state.to", to),
		SessionID(sessionID),
	))
}

// StartWatchSpan starts a span for delivering one watch event.
func StartWatchSpan(ctx context.Context, path string, eventType int32) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanWatchDeliver, trace.WithAttributes(Path(path), WatchType(eventType)))
}

// StartAuthSpan starts a span for one SETAUTH round trip.
func StartAuthSpan(ctx context.Context, scheme string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanAuth, trace.WithAttributes(AuthScheme(scheme)))
}
