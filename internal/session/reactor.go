package session

import (
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

// Interest is what Reactor.Process needs the caller's event loop to
// wait for next: a file descriptor, which directions it should be
// polled for, and the maximum time to wait before calling Process
// again regardless (spec.md §4.5/§5(a): the caller-driven discipline,
// a literal translation of interest()/process() onto a non-blocking
// socket via golang.org/x/sys/unix rather than a libc-level poll
// wrapper).
type Interest struct {
	FD        int
	WantRead  bool
	WantWrite bool
	Timeout   time.Duration
}

type reactorPhase int

const (
	phaseIdle reactorPhase = iota
	phaseConnecting
	phaseHandshaking
	phaseRunning
)

// Reactor is the non-blocking, caller-driven counterpart to Loop: the
// host owns the event loop (select/epoll/kqueue) and calls Interest
// then Process on every iteration, exactly mirroring spec.md §4.5's
// reactor contract. It does not spawn goroutines.
type Reactor struct {
	s     *Session
	fd    int
	phase reactorPhase

	hsSend *wire.SendFrame
	hsRecv *wire.RecvFrame

	curSend *wire.SendFrame
	curRecv *wire.RecvFrame

	lastActivity time.Time
}

// NewReactor wraps s in a caller-driven reactor. Dial must be called
// before the first Interest/Process cycle.
func NewReactor(s *Session) *Reactor {
	return &Reactor{s: s, fd: -1}
}

// Dial opens a non-blocking socket to ip:port (not to the session's
// endpoint set) and starts the CONNECTING phase. The caller must resolve the host
// portion itself (spec.md's Non-goals exclude DNS/host parsing from
// the core) — Reactor only accepts an already-resolved IP literal here;
// Loop's net.Dialer path is the one that performs name resolution. ip
// may be a 4-byte (IPv4) or 16-byte (IPv6) address; the socket family
// and sockaddr are chosen to match, the same way endpoint.Set resolves
// either family for Loop's net.Dialer path.
func (r *Reactor) Dial(ip net.IP, port int) error {
	family, sa, err := sockaddrFor(ip, port)
	if err != nil {
		return err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return err
	}

	r.fd = fd
	r.phase = phaseConnecting
	r.s.setState(StateConnecting)
	r.lastActivity = wallClockNow()
	return nil
}

// sockaddrFor picks the socket family and builds the matching
// unix.Sockaddr for ip, instead of assuming sockaddr_in (spec.md §9's
// "hidden assumption pins addresses to sizeof(sockaddr_in)" concern).
func sockaddrFor(ip net.IP, port int) (family int, sa unix.Sockaddr, err error) {
	if ip4 := ip.To4(); ip4 != nil {
		var addr [4]byte
		copy(addr[:], ip4)
		return unix.AF_INET, &unix.SockaddrInet4{Addr: addr, Port: port}, nil
	}
	if ip16 := ip.To16(); ip16 != nil {
		var addr [16]byte
		copy(addr[:], ip16)
		return unix.AF_INET6, &unix.SockaddrInet6{Addr: addr, Port: port}, nil
	}
	return 0, nil, fmt.Errorf("reactor: invalid IP address %v", ip)
}

// Interest reports what the caller's event loop should wait on.
// CONNECTING waits for writability (spec.md §4.5: "check SO_ERROR once
// the fd becomes writable"); once CONNECTED it waits for readability,
// and additionally for writability whenever frames are queued.
func (r *Reactor) Interest() Interest {
	recvTimeout := r.s.sessionTimeout()
	idle := recvTimeout / 3
	if idle <= 0 {
		idle = time.Second
	}

	switch r.phase {
	case phaseConnecting:
		return Interest{FD: r.fd, WantWrite: true, Timeout: idle}
	case phaseHandshaking:
		if r.hsSend != nil && !r.hsSend.Done() {
			return Interest{FD: r.fd, WantWrite: true, Timeout: idle}
		}
		return Interest{FD: r.fd, WantRead: true, Timeout: idle}
	case phaseRunning:
		want := Interest{FD: r.fd, WantRead: true, Timeout: idle}
		if r.s.toSend.len() > 0 || (r.curSend != nil && !r.curSend.Done()) {
			want.WantWrite = true
		}
		return want
	default:
		return Interest{FD: -1}
	}
}

// Process runs one non-blocking step of the phase the reactor is
// currently in. Callers invoke it whenever Interest's fd becomes ready
// or its Timeout elapses (spec.md §4.5's process() contract, including
// the idle-ping and 2*recvTimeout/3 drop rule).
func (r *Reactor) Process() error {
	switch r.phase {
	case phaseConnecting:
		return r.processConnecting()
	case phaseHandshaking:
		return r.processHandshaking()
	case phaseRunning:
		return r.processRunning()
	default:
		return nil
	}
}

func (r *Reactor) processConnecting() error {
	errno, err := unix.GetsockoptInt(r.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return r.fail(err)
	}
	if errno != 0 {
		return r.fail(unix.Errno(errno))
	}

	r.s.setState(StateAssociating)
	frame, err := r.s.buildHandshakeFrame()
	if err != nil {
		return r.fail(err)
	}
	r.hsSend = frame
	r.hsRecv = wire.NewRecvFrame()
	r.phase = phaseHandshaking
	return nil
}

func (r *Reactor) processHandshaking() error {
	if !r.hsSend.Done() {
		if err := r.hsSend.Send(fdWriter{r.fd}); err != nil && err != wire.ErrWouldBlock {
			return r.fail(err)
		}
		return nil
	}
	if err := r.hsRecv.Recv(fdReader{r.fd}); err != nil && err != wire.ErrWouldBlock {
		return r.fail(err)
	}
	if !r.hsRecv.Done() {
		return nil
	}

	resp, err := wire.DecodeConnectResponse(r.hsRecv.Payload())
	if err != nil {
		return r.fail(err)
	}
	if r.s.applyHandshakeResponse(resp) == handshakeExpired {
		r.s.setState(StateExpired)
		if r.s.cfg.Metrics != nil {
			r.s.cfg.Metrics.SessionExpired()
		}
		return r.close()
	}

	r.s.setState(StateConnected)
	if r.s.cfg.Metrics != nil {
		r.s.cfg.Metrics.SessionConnected()
	}
	r.s.replayPendingAuth()
	r.phase = phaseRunning
	r.curRecv = wire.NewRecvFrame()
	r.lastActivity = wallClockNow()
	return nil
}

func (r *Reactor) processRunning() error {
	if r.curSend == nil || r.curSend.Done() {
		if of, ok := r.s.toSend.dequeue(); ok {
			r.curSend = of.frame
		}
	}
	if r.curSend != nil && !r.curSend.Done() {
		if err := r.curSend.Send(fdWriter{r.fd}); err != nil && err != wire.ErrWouldBlock {
			return r.fail(err)
		}
	}

	if err := r.curRecv.Recv(fdReader{r.fd}); err != nil {
		if err != wire.ErrWouldBlock {
			return r.fail(err)
		}
	} else if r.curRecv.Done() {
		r.lastActivity = wallClockNow()
		hdr, body, err := wire.DecodeReplyHeader(r.curRecv.Payload())
		if err != nil {
			return r.fail(err)
		}
		if err := r.s.handleReply(hdr, body); err != nil {
			return r.fail(err)
		}
		r.curRecv = wire.NewRecvFrame()
	}

	recvTimeout := r.s.sessionTimeout()
	if recvTimeout > 0 && wallClockNow().Sub(r.lastActivity) > (2*recvTimeout)/3 {
		return r.fail(zkerr.ErrConnectionLoss)
	}
	if recvTimeout > 0 && wallClockNow().Sub(r.lastActivity) > recvTimeout/3 {
		_ = r.s.enqueuePing()
	}
	return nil
}

func (r *Reactor) fail(err error) error {
	// Notify CONNECTING before failing in-flight completions, mirroring
	// Loop.runOnce's ordering (spec.md §5, scenario S2).
	if !r.s.State().terminal() {
		r.s.setState(StateConnecting)
	}
	r.s.drainPending(zkerr.ErrConnectionLoss)
	_ = r.close()
	return err
}

func (r *Reactor) close() error {
	if r.fd >= 0 {
		_ = unix.Close(r.fd)
		r.fd = -1
	}
	r.phase = phaseIdle
	return nil
}

type fdReader struct{ fd int }

func (f fdReader) Read(p []byte) (int, error) {
	n, err := unix.Read(f.fd, p)
	if err == unix.EAGAIN {
		return 0, wire.ErrWouldBlock
	}
	if n == 0 && err == nil && len(p) > 0 {
		return 0, io.EOF // a zero-byte read means the peer closed
	}
	return n, err
}

type fdWriter struct{ fd int }

func (f fdWriter) Write(p []byte) (int, error) {
	n, err := unix.Write(f.fd, p)
	if err == unix.EAGAIN {
		return 0, wire.ErrWouldBlock
	}
	return n, err
}

// wallClockNow is the reactor's sole time source, isolated so tests can
// substitute a fake clock without the rest of the package depending on
// a clock abstraction.
var wallClockNow = time.Now
