package session

import (
	"context"

	"github.com/marmos91/zkgo/internal/telemetry"
	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

// deliverWatch implements spec.md §4.5/§4.6's xid=-1 branch: decode the
// WatcherEvent and hand it to the user's Watcher. No pending-completion
// is consumed (invariant I3) and no watch-registry bookkeeping happens
// here — re-arming across reconnect is the caller's responsibility
// (spec.md §4.6, DESIGN.md Open Question decision).
func (s *Session) deliverWatch(body []byte) error {
	if s.cfg.Watcher == nil {
		return nil
	}
	ev, err := wire.DecodeWatcherEvent(body)
	if err != nil {
		return err
	}
	_, span := telemetry.StartWatchSpan(context.Background(), ev.Path, ev.Type)
	defer span.End()
	s.cfg.Watcher(Event{Type: EventType(ev.Type), State: State(ev.State), Path: ev.Path})
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.WatchEventDelivered(EventType(ev.Type))
	}
	return nil
}

// handleReply routes one fully-received reply frame to the correct
// branch per spec.md §4.5's pseudocode: watch events and auth replies
// are special-cased by reserved xid; everything else pops the main
// pending-completion queue (dispatchReply, invariant I2).
func (s *Session) handleReply(hdr *wire.ReplyHeader, body []byte) error {
	switch wire.OpCode(hdr.Xid) {
	case wire.XidWatch:
		return s.deliverWatch(body)
	case wire.XidAuth:
		s.handleAuthReply(hdr)
		if s.State() == StateAuthFailed {
			return zkerr.ErrAuthFailed // unwind recvLoop; the session is terminal.
		}
		return nil
	default:
		return s.dispatchReply(hdr, body)
	}
}
