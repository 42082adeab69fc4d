// Package zk is the public client for the coordination service: a
// session state machine, request/response multiplexer, and watch
// dispatcher over a znode tree (spec.md §1-§9). internal/session owns
// the core invariants; this package supplies the operation bodies,
// the synchronous wrappers, and the options surface a caller sees.
package zk

import (
	"context"
	"time"

	"github.com/marmos91/zkgo/internal/endpoint"
	"github.com/marmos91/zkgo/internal/session"
	"github.com/marmos91/zkgo/internal/wire"
)

// Re-exported so callers never need to import internal/session.
type (
	State     = session.State
	Event     = session.Event
	EventType = session.EventType
	Watcher   = session.Watcher
	ACL       = wire.ACL
	Id        = wire.Id
	Stat      = wire.Stat
)

const (
	StateClosed      = session.StateClosed
	StateConnecting  = session.StateConnecting
	StateAssociating = session.StateAssociating
	StateConnected   = session.StateConnected
	StateExpired     = session.StateExpired
	StateAuthFailed  = session.StateAuthFailed
)

const (
	EventNodeCreated         = session.EventCreated
	EventNodeDeleted         = session.EventDeleted
	EventNodeDataChanged     = session.EventChanged
	EventNodeChildrenChanged = session.EventChild
	EventSession             = session.EventSession
	EventNotWatching         = session.EventNotWatching
)

// Predefined ACLs and identities (spec.md §6).
var (
	AnyoneIdUnsafe = wire.AnyoneIdUnsafe
	AuthIds        = wire.AuthIds
	OpenACLUnsafe  = wire.OpenACLUnsafe
	ReadACLUnsafe  = wire.ReadACLUnsafe
	CreatorAllACL  = wire.CreatorAllACL
)

// ACL permission bits (spec.md §6).
const (
	PermRead   = wire.PermRead
	PermWrite  = wire.PermWrite
	PermCreate = wire.PermCreate
	PermDelete = wire.PermDelete
	PermAdmin  = wire.PermAdmin
	PermAll    = wire.PermAll
)

// CreateFlag controls node lifetime/naming (spec.md §6).
type CreateFlag = int32

const (
	FlagEphemeral CreateFlag = wire.FlagEphemeral
	FlagSequence  CreateFlag = wire.FlagSequence
)

// Client is the public handle: it owns a session.Session plus the
// goroutine-driven reactor loop (session.Loop) that keeps it connected
// (spec.md §5(b)). Callers who want the caller-driven discipline of
// spec.md §5(a) instead can build a session.Session + session.Reactor
// directly; Client is the convenience path.
type Client struct {
	sess   *session.Session
	loop   *session.Loop
	cancel context.CancelFunc
}

// Option configures Dial.
type Option func(*session.Config)

// WithSessionTimeout sets the requested session timeout (spec.md §4.3).
func WithSessionTimeout(d time.Duration) Option {
	return func(c *session.Config) { c.SessionTimeout = d }
}

// WithConnectTimeout bounds how long a single dial+handshake attempt
// may take before it is considered failed.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *session.Config) { c.ConnectTimeout = d }
}

// WithWatcher registers the default watcher for watch notifications and
// session state transitions (spec.md §4.6).
func WithWatcher(w Watcher) Option {
	return func(c *session.Config) { c.Watcher = w }
}

// WithSessionID resumes an existing session (spec.md §4.3's continuity
// rule) instead of starting a fresh one.
func WithSessionID(id int64, passwd []byte) Option {
	return func(c *session.Config) { c.ClientID = id; c.Passwd = passwd }
}

// WithMetrics wires an optional, nil-safe observability hook
// (pkg/metrics).
func WithMetrics(m session.Metrics) Option {
	return func(c *session.Config) { c.Metrics = m }
}

// WithReconnectBackoff overrides the default reconnect backoff policy
// (DESIGN.md Open Question decision: 100ms base doubling to an 8s cap).
func WithReconnectBackoff(base, capDuration time.Duration) Option {
	return func(c *session.Config) { c.ReconnectBackoffBase = base; c.ReconnectBackoffCap = capDuration }
}

// Dial parses hosts (a comma-separated "host:port" list, spec.md §4.2),
// brings up a session against it, and returns once the client has been
// started. Dial does not block for the first successful handshake —
// use WaitForState if the caller needs to block until CONNECTED.
func Dial(ctx context.Context, hosts string, opts ...Option) (*Client, error) {
	endpoints, err := endpoint.Parse(ctx, hosts)
	if err != nil {
		return nil, err
	}

	cfg := session.Config{
		Endpoints:      endpoints,
		SessionTimeout: 10 * time.Second,
		ConnectTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := session.New(cfg)
	loop := session.NewLoop(s)
	loopCtx, cancel := context.WithCancel(context.Background())
	go loop.Run(loopCtx)

	return &Client{sess: s, loop: loop, cancel: cancel}, nil
}

// State returns the client's current session state.
func (c *Client) State() State { return c.sess.State() }

// SessionID returns the current session identity, for persisting
// across process restarts (spec.md §4.3).
func (c *Client) SessionID() int64 { return c.sess.SessionID() }

// Close tears the client down: the reconnect loop stops, the
// underlying connection is closed, and every in-flight completion is
// drained with ErrClosing (spec.md §5).
func (c *Client) Close() {
	c.sess.Close()
	c.cancel()
}

// WaitForState blocks until the session reaches want or ctx is done.
func (c *Client) WaitForState(ctx context.Context, want State) error {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for {
		if c.sess.State() == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
