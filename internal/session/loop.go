package session

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/marmos91/zkgo/internal/logger"
	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

// Loop is the goroutine-driven reactor discipline (spec.md §5(b)): one
// goroutine pumps outbound frames and paces pings, one reads and
// dispatches inbound frames, and Run itself owns reconnect/backoff.
// It is what pkg/zk.Client uses by default; Reactor (reactor.go) is
// the alternative caller-driven discipline for hosts that already run
// their own event loop (spec.md §5(a)).
type Loop struct {
	s *Session
}

// NewLoop wraps s in a goroutine-driven reactor.
func NewLoop(s *Session) *Loop { return &Loop{s: s} }

// Run dials, handshakes, and pumps frames until the session reaches a
// terminal state or Close is called, reconnecting with backoff across
// the endpoint set on every connection loss (spec.md §4.4, §4.5).
func (l *Loop) Run(ctx context.Context) {
	lap := 0
	for {
		if l.s.Closed() || l.s.State().terminal() {
			return
		}

		err := l.runOnce(ctx)
		_ = err

		if l.s.Closed() || l.s.State().terminal() {
			return
		}

		if l.s.cfg.Metrics != nil {
			l.s.cfg.Metrics.ReconnectAttempted()
		}
		if l.s.cfg.Endpoints.Advance() {
			lap++
		}

		select {
		case <-time.After(l.s.backoffFor(lap)):
		case <-l.s.closed:
			return
		}
	}
}

// runOnce dials the current endpoint, performs the handshake, and then
// blocks pumping frames until the connection fails or is closed. Unless
// the session was closed, it leaves the session with every in-flight
// completion drained before returning.
func (l *Loop) runOnce(ctx context.Context) error {
	s := l.s
	s.setState(StateConnecting)

	addr := s.cfg.Endpoints.Current()
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeoutOr(s.cfg.ConnectTimeout))
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr.String())
	if err != nil {
		logger.WarnCtx(s.logContext(), "dial failed", "endpoint", addr.String(), "error", err)
		s.drainPending(zkerr.ErrConnectionLoss)
		return err
	}

	s.connMu.Lock()
	s.conn = conn
	s.connectionID++
	s.connMu.Unlock()

	defer func() {
		s.connMu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
			s.conn = nil
		}
		s.connMu.Unlock()
	}()

	s.setState(StateAssociating)
	if err := s.handshake(dialCtx, conn); err != nil {
		logger.WarnCtx(s.logContext(), "handshake failed", "error", err)
		if !s.State().terminal() {
			s.setState(StateConnecting)
		}
		s.drainPending(zkerr.ErrConnectionLoss)
		return err
	}
	if s.State().terminal() {
		// EXPIRED surfaced via handshake: fail whatever was queued meanwhile.
		s.drainPending(zkerr.ErrSessionExpired)
		return nil
	}

	s.setState(StateConnected)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SessionConnected()
	}
	s.replayPendingAuth()

	errCh := make(chan error, 2)
	done := make(chan struct{})
	go l.sendLoop(conn, done, errCh)
	go l.recvLoop(conn, done, errCh)

	var loopErr error
	select {
	case loopErr = <-errCh:
	case <-s.closed:
		loopErr = zkerr.ErrClosing
	}
	close(done)

	s.connMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.connMu.Unlock()

	if !s.Closed() && !s.State().terminal() {
		// Notify CONNECTING before failing in-flight completions, so
		// watchers observe the session-drop event ahead of any
		// connection-loss error (spec.md §5, scenario S2).
		s.setState(StateConnecting)
		s.drainPending(zkerr.ErrConnectionLoss)
	}
	return loopErr
}

// sendLoop flushes queued frames and paces pings per spec.md §4.5's
// interest() timeout derivation: a ping is enqueued every
// recvTimeout/3, whether or not other frames were sent. recvLoop
// abandons the connection if nothing at all is read for
// 2*recvTimeout/3.
func (l *Loop) sendLoop(conn connLike, done <-chan struct{}, errCh chan<- error) {
	s := l.s
	pingEvery := s.sessionTimeout() / 3
	if pingEvery <= 0 {
		pingEvery = time.Second
	}
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		for {
			of, ok := s.toSend.dequeue()
			if !ok {
				break
			}
			if err := flushFrame(conn, of.frame); err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
		}

		select {
		case <-done:
			return
		case <-s.wakeCh:
		case <-ticker.C:
			_ = s.enqueuePing()
		}
	}
}

// recvLoop reads and dispatches inbound frames until the connection
// fails, or until nothing is read for 2*recvTimeout/3.
func (l *Loop) recvLoop(conn connLike, done <-chan struct{}, errCh chan<- error) {
	s := l.s
	for {
		select {
		case <-done:
			return
		default:
		}

		if to := s.sessionTimeout(); to > 0 {
			_ = conn.SetDeadline(time.Now().Add(2 * to / 3))
		}
		rf := wire.NewRecvFrame()
		for !rf.Done() {
			if err := rf.Recv(conn); err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
		}

		hdr, body, err := wire.DecodeReplyHeader(rf.Payload())
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		if err := s.handleReply(hdr, body); err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
	}
}

// flushFrame drives one SendFrame to completion, blocking on the
// (blocking, net.Conn-backed) writer — the goroutine-driven Loop does
// not need the non-blocking discipline Reactor uses for callers that
// share a single-threaded event loop.
func flushFrame(w io.Writer, f *wire.SendFrame) error {
	for !f.Done() {
		if err := f.Send(w); err != nil && err != wire.ErrWouldBlock {
			return err
		}
	}
	return nil
}

func connectTimeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func (s *Session) sessionTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}
