// Package session implements the CORE of the client: the session state
// machine, request/response multiplexer, I/O reactor, and watch/auth
// dispatch described in spec.md §3-§5. It knows nothing about the
// shape of individual operation payloads beyond the fixed headers and
// handshake (internal/wire) — callers (pkg/zk) supply already-encoded
// request bodies and decode already-delivered response bodies.
package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/zkgo/internal/endpoint"
	"github.com/marmos91/zkgo/internal/logger"
	"github.com/marmos91/zkgo/internal/telemetry"
	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

// State is one of the six session states (spec.md §4.4).
type State int32

const (
	StateClosed      State = 0
	StateConnecting  State = 1
	StateAssociating State = 2
	StateConnected   State = 3
	StateExpired     State = -112
	StateAuthFailed  State = -113
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateAssociating:
		return "ASSOCIATING"
	case StateConnected:
		return "CONNECTED"
	case StateExpired:
		return "EXPIRED"
	case StateAuthFailed:
		return "AUTH_FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(s))
	}
}

// terminal reports whether s is EXPIRED or AUTH_FAILED (spec.md I6).
func (s State) terminal() bool { return s == StateExpired || s == StateAuthFailed }

// EventType identifies the kind of watch/session event delivered to
// the user's Watcher (spec.md §4.6).
type EventType int32

const (
	EventCreated     EventType = 1
	EventDeleted     EventType = 2
	EventChanged     EventType = 3
	EventChild       EventType = 4
	EventSession     EventType = -1
	EventNotWatching EventType = -2
)

// Event is delivered to the user's Watcher for both watch
// notifications and session state transitions (spec.md §4.6).
type Event struct {
	Type  EventType
	State State
	Path  string
}

// Watcher receives every watch notification and session transition.
// The core performs no watch-registry bookkeeping (spec.md §4.6);
// re-arming across reconnect is left to the caller.
type Watcher func(Event)

// CompletionKind identifies the shape of a pending completion's
// response body, so the router knows how many bytes to hand back
// without parsing them (spec.md §3: the six completion kinds).
type CompletionKind int

const (
	KindVoid CompletionKind = iota
	KindStat
	KindData
	KindStringList
	KindAclList
	KindString
)

// pendingCompletion is spec.md §3's PendingCompletion record. Per
// spec.md §9's re-architecture note ("sentinel pointer for synchronous
// mode" -> "explicit variant of the completion sum type"), the Go
// rendition collapses sync/async into one callback: synchronous
// wrappers simply supply a callback that sends on a buffered channel
// (see pkg/zk's sync wrappers) rather than the core special-casing a
// marker value.
type pendingCompletion struct {
	xid      int32
	opcode   wire.OpCode
	kind     CompletionKind
	callback func(body []byte, zxid int64, err error)
}

// Config are the session's tunables.
type Config struct {
	Endpoints              *endpoint.Set
	SessionTimeout         time.Duration
	ConnectTimeout         time.Duration
	ClientID               int64
	Passwd                 []byte
	Watcher                Watcher
	Metrics                Metrics
	ReconnectBackoffBase   time.Duration
	ReconnectBackoffCap    time.Duration
}

// Session is spec.md §3's SessionHandle.
type Session struct {
	cfg Config

	mu        sync.Mutex
	state     State
	sessionID int64
	passwd    []byte
	timeout   time.Duration
	lastZxid  int64

	conn       connLike
	connMu     sync.Mutex
	toSend     *fifo[*outboundFrame]
	pending    *fifo[*pendingCompletion]
	nextXid    int32

	authMu      sync.Mutex
	authPending []pendingAuth
	authFailed  bool

	closeOnce sync.Once
	closed    chan struct{}
	wakeCh    chan struct{}

	connectionID uint64
	lastRecv     time.Time

	lapWaitFn func(lap int) time.Duration
}

type pendingAuth struct {
	scheme string
	cred   []byte
	done   func(err error)
}

// outboundFrame pairs a SendFrame with bookkeeping needed once it has
// been fully transmitted (currently none beyond the frame itself, but
// kept distinct from *wire.SendFrame so router.go can extend it
// without reshaping the queue).
type outboundFrame struct {
	frame *wire.SendFrame
}

// connLike is the subset of net.Conn the session needs, so tests can
// substitute net.Pipe() ends or an in-process fake listener.
type connLike interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
	SetDeadline(t time.Time) error
}

// Metrics is the optional, nil-safe observability hook (pkg/metrics
// wires a Prometheus implementation; see SPEC_FULL.md §10).
type Metrics interface {
	ReconnectAttempted()
	SessionConnected()
	SessionExpired()
	PingSent()
	RequestCompleted(opcode wire.OpCode, err error)
	WatchEventDelivered(eventType EventType)
}

// New creates a session in the CLOSED state. Call Loop.Run (or drive
// Reactor directly) to bring it up.
func New(cfg Config) *Session {
	if cfg.ReconnectBackoffBase == 0 {
		cfg.ReconnectBackoffBase = 100 * time.Millisecond
	}
	if cfg.ReconnectBackoffCap == 0 {
		cfg.ReconnectBackoffCap = 8 * time.Second
	}
	s := &Session{
		cfg:       cfg,
		state:     StateClosed,
		sessionID: cfg.ClientID,
		passwd:    cfg.Passwd,
		timeout:   cfg.SessionTimeout,
		toSend:    newFIFO[*outboundFrame](),
		pending:   newFIFO[*pendingCompletion](),
		closed:    make(chan struct{}),
		wakeCh:    make(chan struct{}, 1),
	}
	if s.passwd == nil {
		s.passwd = make([]byte, 16)
	}
	return s
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the current session identity.
func (s *Session) SessionID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	if prev.terminal() {
		s.mu.Unlock()
		return // spec.md I6: terminal states never transition out.
	}
	s.state = next
	sid := s.sessionID
	s.mu.Unlock()

	if next != prev {
		_, span := telemetry.StartSessionStateSpan(context.Background(), prev.String(), next.String(), sid)
		span.End()
	}

	if s.cfg.Watcher != nil && next != prev {
		s.cfg.Watcher(Event{Type: EventSession, State: next})
	}
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Close requests shutdown. It is idempotent and safe to call
// concurrently with in-flight operations (spec.md §5's reference-
// counted handle is re-architected here as a closed channel + drain,
// per §9 and DESIGN.md's concurrency note).
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.connMu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.connMu.Unlock()
		s.drainPending(zkerr.ErrClosing)
	})
}

// nextXID assigns the next monotonic transaction id, skipping reserved
// negative values (spec.md §4.5 step 1). xids are process-wide in the
// C original; here they are per-Session, which is the correct scope
// since correlation only ever needs to be unique within one session's
// FIFO.
func (s *Session) nextXID() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextXid++
	if s.nextXid < 0 {
		s.nextXid = 1
	}
	return s.nextXid
}

// randomPasswd returns 16 random bytes. New does not call it: a session
// with no client identity starts with a zeroed 16-byte password.
func randomPasswd() []byte {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return b
}

// wake nudges a blocked Loop/Reactor send-side select without
// blocking the caller if a wake is already pending.
func (s *Session) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// logContext builds the logger context for this session's current
// connection.
func (s *Session) logContext() context.Context {
	s.mu.Lock()
	sid := s.sessionID
	s.mu.Unlock()
	return logger.WithContext(context.Background(), &logger.LogContext{
		ConnectionID: s.connectionID,
		SessionID:    sid,
	})
}
