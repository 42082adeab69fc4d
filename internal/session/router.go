package session

import (
	"context"

	"github.com/marmos91/zkgo/internal/telemetry"
	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

// Call assigns an xid, frames {RequestHeader, body}, and atomically
// enqueues the pending completion before/with the outbound frame
// (spec.md §4.5 step 1-3, invariant I1). It returns ZINVALIDSTATE
// immediately without touching any queue if the session has reached a
// terminal state (spec.md §4.4, §7: "Session/auth failures are
// terminal and fail every subsequent call").
func (s *Session) Call(opcode wire.OpCode, body []byte, kind CompletionKind, cb func(respBody []byte, zxid int64, err error)) error {
	if s.State().terminal() {
		return zkerr.ErrInvalidState
	}
	if s.Closed() {
		return zkerr.ErrClosing
	}

	xid := s.nextXID()
	hdr, err := wire.EncodeRequestHeader(&wire.RequestHeader{Xid: xid, Type: int32(opcode)})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	frame := wire.NewSendFrame(wire.BuildFrame(hdr, body))

	_, span := telemetry.StartCallSpan(context.Background(), opcode.String(), xid)
	span.End()

	pc := &pendingCompletion{xid: xid, opcode: opcode, kind: kind, callback: cb}
	s.pending.enqueue(pc) // I1: pending entry enqueued before/atomically with the frame.
	s.toSend.enqueue(&outboundFrame{frame: frame})
	s.wake()
	return nil
}

// enqueuePing synthesizes a PING frame (spec.md §4.5's interest()
// contract: idle timeout reaching zero while CONNECTED synthesizes a
// ping). Its completion is a Void kind that is silently discarded,
// matching spec.md §4.5's cleanup_bufs note and the "ping responses
// are consumed and discarded" rule in I4 — it still occupies the
// ordinary pending queue slot so the router's pop-and-assert (I2)
// sees it like any other reply.
func (s *Session) enqueuePing() error {
	hdr, err := wire.EncodeRequestHeader(&wire.RequestHeader{Xid: int32(wire.XidPing), Type: int32(wire.OpPing)})
	if err != nil {
		return err
	}
	frame := wire.NewSendFrame(hdr)
	pc := &pendingCompletion{xid: int32(wire.XidPing), opcode: wire.OpPing, kind: KindVoid, callback: func([]byte, int64, error) {}}
	s.pending.enqueue(pc)
	s.toSend.enqueue(&outboundFrame{frame: frame})
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.PingSent()
	}
	s.wake()
	return nil
}

// dispatchReply implements the "otherwise" branch of spec.md §4.5's
// drain loop: pop the head of the pending-completion queue and assert
// xid equality (invariant I2). A mismatch is fatal for the connection
// (ZRUNTIMEINCONSISTENCY) and the mismatched head is pushed back so it
// is still observed as a failure during the subsequent drain
// (spec.md §7).
func (s *Session) dispatchReply(hdr *wire.ReplyHeader, body []byte) error {
	s.mu.Lock()
	if hdr.Zxid > 0 {
		s.lastZxid = hdr.Zxid
	}
	s.mu.Unlock()

	pc, ok := s.pending.dequeue()
	if !ok {
		return zkerr.New(zkerr.RuntimeInconsistency)
	}
	if pc.xid != hdr.Xid {
		s.pending.pushFront(pc)
		return zkerr.New(zkerr.RuntimeInconsistency)
	}

	var err error
	if hdr.Err != 0 {
		err = zkerr.New(zkerr.Code(hdr.Err))
	}
	pc.callback(body, hdr.Zxid, err)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RequestCompleted(pc.opcode, err)
	}
	return nil
}

// drainPending fails every entry still on the pending-completion queue
// exactly once with errCode, per spec.md §4.5's cleanup_bufs: "No
// completion is ever leaked and none is dispatched twice." PING
// completions are no-ops by construction so "silently discarded" falls
// out naturally.
func (s *Session) drainPending(err error) {
	for _, pc := range s.pending.drain() {
		pc.callback(nil, 0, err)
	}
	s.toSend.drain()
	s.failAuthPending(err)
}
