package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameLength bounds the payload length accepted from a header. The
// protocol itself imposes no explicit cap (spec.md §4.1); this guards
// against a corrupt or hostile length prefix causing an unbounded
// allocation.
const MaxFrameLength = 64 * 1024 * 1024

// ErrWouldBlock is returned by Send/Recv when the underlying I/O would
// block and zero net progress was made on this call. Callers retry on
// the next write/read-readiness notification.
var ErrWouldBlock = errors.New("wire: would block")

// ErrFrameTooLarge is returned when a received length prefix exceeds
// MaxFrameLength.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum length")

// SendFrame is a length-prefixed outbound frame with a resumable cursor,
// so a partial write can be continued on the next call (spec.md §4.1).
type SendFrame struct {
	buf    []byte
	cursor int
}

// NewSendFrame prepares payload for transmission, prefixed with its
// 4-byte big-endian length.
func NewSendFrame(payload []byte) *SendFrame {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	return &SendFrame{buf: buf}
}

// Done reports whether the frame has been fully transmitted.
func (f *SendFrame) Done() bool { return f.cursor >= len(f.buf) }

// Send writes as much of the frame as w accepts without blocking. It
// returns nil once the whole frame has been sent, ErrWouldBlock if w
// returned (0, nil)-equivalent backpressure (callers pass a writer that
// surfaces EAGAIN as ErrWouldBlock — see session/reactor.go), or any
// other error as a hard I/O failure.
func (f *SendFrame) Send(w io.Writer) error {
	for f.cursor < len(f.buf) {
		n, err := w.Write(f.buf[f.cursor:])
		f.cursor += n
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrWouldBlock
		}
	}
	return nil
}

// recvState is the explicit resumable state machine for a receive
// frame, per spec.md §9's re-architecture note: model partial I/O as
// {AwaitingHeader(bytes_read)} -> {AwaitingBody(len,buf,bytes_read)} ->
// {Complete(buf)} rather than a single reused cursor.
type recvState int

const (
	recvAwaitingHeader recvState = iota
	recvAwaitingBody
	recvComplete
)

// RecvFrame accumulates an inbound length-prefixed frame across
// however many partial reads it takes to arrive.
type RecvFrame struct {
	state      recvState
	header     [4]byte
	headerRead int
	body       []byte
	bodyRead   int
}

// NewRecvFrame starts a fresh inbound frame.
func NewRecvFrame() *RecvFrame { return &RecvFrame{state: recvAwaitingHeader} }

// Done reports whether the full frame has arrived.
func (f *RecvFrame) Done() bool { return f.state == recvComplete }

// Payload returns the completed frame's body. Only valid once Done.
func (f *RecvFrame) Payload() []byte { return f.body }

// Recv reads as much as r offers without blocking, advancing the
// frame's state machine. Returns nil once Done() becomes true,
// ErrWouldBlock if no further progress is currently possible, or a
// hard I/O error (including io.EOF on peer close, per spec.md §4.1:
// "a zero-byte recv indicates peer close and is reported as a
// hard-error equivalent to connection loss").
func (f *RecvFrame) Recv(r io.Reader) error {
	for {
		switch f.state {
		case recvAwaitingHeader:
			n, err := r.Read(f.header[f.headerRead:])
			f.headerRead += n
			if f.headerRead == 4 {
				length := binary.BigEndian.Uint32(f.header[:])
				if length > MaxFrameLength {
					return fmt.Errorf("%w: %d", ErrFrameTooLarge, length)
				}
				f.body = make([]byte, length)
				f.state = recvAwaitingBody
				if err == nil && n == 0 {
					return ErrWouldBlock
				}
				if length == 0 {
					f.state = recvComplete
					return nil
				}
				continue
			}
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrWouldBlock
			}
			return ErrWouldBlock
		case recvAwaitingBody:
			if len(f.body) == 0 {
				f.state = recvComplete
				return nil
			}
			n, err := r.Read(f.body[f.bodyRead:])
			f.bodyRead += n
			if f.bodyRead == len(f.body) {
				f.state = recvComplete
				return nil
			}
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrWouldBlock
			}
			return ErrWouldBlock
		case recvComplete:
			return nil
		}
	}
}
