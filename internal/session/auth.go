package session

import (
	"context"

	"github.com/marmos91/zkgo/internal/telemetry"
	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

// AddAuth enqueues a SETAUTH credential at the head of the send queue
// (spec.md §4.7: auth frames precede any already-queued application
// request). done is invoked once the server's xid=-4 reply for this
// credential arrives, or immediately if the session is already
// AUTH_FAILED. The credential is not kept after its reply arrives or
// after a connection loss fails it, so it is not re-sent on a later
// reconnect.
func (s *Session) AddAuth(scheme string, cred []byte, done func(err error)) {
	if done == nil {
		done = func(error) {}
	}

	s.authMu.Lock()
	if s.authFailed {
		s.authMu.Unlock()
		done(zkerr.ErrAuthFailed)
		return
	}
	s.authPending = append(s.authPending, pendingAuth{scheme: scheme, cred: cred, done: done})
	s.authMu.Unlock()

	s.enqueueAuthFrame(scheme, cred)
}

// enqueueAuthFrame builds and front-enqueues one SETAUTH frame. It is
// also used by replayPendingAuth after a handshake.
func (s *Session) enqueueAuthFrame(scheme string, cred []byte) {
	_, span := telemetry.StartAuthSpan(context.Background(), scheme)
	defer span.End()

	hdr, err := wire.EncodeRequestHeader(&wire.RequestHeader{Xid: int32(wire.XidAuth), Type: int32(wire.OpSetAuth)})
	if err != nil {
		return
	}
	body, err := wire.Marshal(&wire.SetAuthRequest{Type: 0, Scheme: scheme, Auth: cred})
	if err != nil {
		return
	}
	frame := wire.NewSendFrame(wire.BuildFrame(hdr, body))
	s.toSend.enqueueFront(&outboundFrame{frame: frame})
	s.wake()
}

// replayPendingAuth re-sends every credential registered via AddAuth
// that is still awaiting its SETAUTH reply, in the order it was
// originally added. Credentials already answered, or failed by a
// connection loss, are no longer held and are not re-sent. It is
// called once per successful handshake, before any queued application
// request is allowed to flush.
func (s *Session) replayPendingAuth() {
	s.authMu.Lock()
	creds := make([]pendingAuth, len(s.authPending))
	copy(creds, s.authPending)
	s.authMu.Unlock()

	for i := len(creds) - 1; i >= 0; i-- {
		s.enqueueAuthFrame(creds[i].scheme, creds[i].cred)
	}
}

// handleAuthReply implements spec.md §4.5's dedicated xid=-4 branch:
// auth replies are matched independently of the main pending-completion
// queue (I4). A non-OK error code transitions the session to
// AUTH_FAILED and every outstanding credential (and the main pending
// queue) is drained.
func (s *Session) handleAuthReply(hdr *wire.ReplyHeader) {
	s.authMu.Lock()
	var pa pendingAuth
	if len(s.authPending) > 0 {
		pa = s.authPending[0]
		s.authPending = s.authPending[1:]
	}
	s.authMu.Unlock()

	if hdr.Err != 0 {
		s.authMu.Lock()
		s.authFailed = true
		s.authMu.Unlock()
		s.setState(StateAuthFailed)
		if pa.done != nil {
			pa.done(zkerr.New(zkerr.Code(hdr.Err)))
		}
		s.drainPending(zkerr.ErrAuthFailed)
		return
	}
	if pa.done != nil {
		pa.done(nil)
	}
}

// failAuthPending fails every credential still awaiting its SETAUTH
// reply, exactly once, with err (called from drainPending).
func (s *Session) failAuthPending(err error) {
	s.authMu.Lock()
	pending := s.authPending
	s.authPending = nil
	s.authMu.Unlock()

	for _, pa := range pending {
		if pa.done != nil {
			pa.done(err)
		}
	}
}
