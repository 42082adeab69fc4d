package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/zkgo/internal/endpoint"
	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

type fakeResolver struct{ ip string }

func (r fakeResolver) LookupHost(context.Context, string) ([]string, error) {
	return []string{r.ip}, nil
}

// fakeServer is a minimal in-process stand-in for the coordination
// service: it accepts one TCP connection at a time, performs the
// handshake with a fixed session identity, and dispatches subsequent
// frames to a test-supplied handler.
type fakeServer struct {
	ln        net.Listener
	sessionID int64
	passwd    []byte
	handle    func(conn net.Conn, hdr *wire.RequestHeader, body []byte) (replyBody []byte, errCode int32, stop bool)
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return &fakeServer{ln: ln, sessionID: 42, passwd: []byte("0123456789abcdef")}
}

func (fs *fakeServer) addr() *endpoint.Set {
	host, port, _ := net.SplitHostPort(fs.ln.Addr().String())
	s, err := endpoint.Parse(context.Background(), host+":"+port,
		endpoint.WithDeterministicOrder(),
		endpoint.WithResolver(fakeResolver{ip: host}))
	if err != nil {
		panic(err)
	}
	return s
}

func (fs *fakeServer) acceptOnce(t *testing.T) {
	t.Helper()
	go func() {
		conn, err := fs.ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		rf := wire.NewRecvFrame()
		for !rf.Done() {
			if err := rf.Recv(conn); err != nil {
				return
			}
		}
		req, err := wire.DecodeConnectRequest(rf.Payload())
		if err != nil {
			return
		}
		sid := fs.sessionID
		if req.SessionID != 0 && req.SessionID != fs.sessionID {
			sid = 0 // simulate rejection (expired) when asked
		}
		respBody, _ := wire.EncodeConnectResponse(&wire.ConnectResponse{
			ProtocolVersion: wire.ProtocolVersion,
			TimeOut:         req.TimeOut,
			SessionID:       sid,
			Passwd:          fs.passwd,
		})
		hsFrame := wire.NewSendFrame(respBody)
		for !hsFrame.Done() {
			if err := hsFrame.Send(conn); err != nil {
				return
			}
		}

		for {
			rf := wire.NewRecvFrame()
			for !rf.Done() {
				if err := rf.Recv(conn); err != nil {
					return
				}
			}
			hdr, body, err := wire.DecodeRequestHeader(rf.Payload())
			if err != nil {
				return
			}
			if fs.handle == nil {
				continue
			}
			replyBody, errCode, stop := fs.handle(conn, hdr, body)
			replyHdr, _ := wire.EncodeReplyHeader(&wire.ReplyHeader{Xid: hdr.Xid, Zxid: 1, Err: errCode})
			frame := wire.NewSendFrame(wire.BuildFrame(replyHdr, replyBody))
			for !frame.Done() {
				if err := frame.Send(conn); err != nil {
					return
				}
			}
			if stop {
				return
			}
		}
	}()
}

func waitForState(t *testing.T, s *Session, want State, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %v, got %v", want, s.State())
}

func TestHandshakeReachesConnected(t *testing.T) {
	fs := newFakeServer(t)
	fs.acceptOnce(t)

	s := New(Config{Endpoints: fs.addr(), SessionTimeout: time.Second, ConnectTimeout: time.Second})
	loop := NewLoop(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)
	defer s.Close()

	waitForState(t, s, StateConnected, 2*time.Second)
	require.EqualValues(t, 42, s.SessionID())
}

func TestCallRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(_ net.Conn, hdr *wire.RequestHeader, body []byte) ([]byte, int32, bool) {
		require.EqualValues(t, wire.OpGetData, hdr.Type)
		respBody, _ := wire.Marshal(&wire.GetDataResponse{Data: []byte("hello"), Stat: wire.Stat{Version: 3}})
		return respBody, 0, false
	}
	fs.acceptOnce(t)

	s := New(Config{Endpoints: fs.addr(), SessionTimeout: time.Second, ConnectTimeout: time.Second})
	loop := NewLoop(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)
	defer s.Close()
	waitForState(t, s, StateConnected, 2*time.Second)

	reqBody, err := wire.Marshal(&wire.GetDataRequest{Path: "/foo"})
	require.NoError(t, err)

	done := make(chan struct{})
	var gotData []byte
	var gotErr error
	err = s.Call(wire.OpGetData, reqBody, KindData, func(body []byte, zxid int64, cbErr error) {
		var resp wire.GetDataResponse
		if cbErr == nil {
			_, cbErr = wire.Unmarshal(body, &resp)
			gotData = resp.Data
		}
		gotErr = cbErr
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
	require.NoError(t, gotErr)
	require.Equal(t, []byte("hello"), gotData)
}

func TestConnectionLossDrainsPendingExactlyOnce(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(conn net.Conn, hdr *wire.RequestHeader, body []byte) ([]byte, int32, bool) {
		conn.Close()
		return nil, 0, true
	}
	fs.acceptOnce(t)

	s := New(Config{Endpoints: fs.addr(), SessionTimeout: time.Second, ConnectTimeout: time.Second})
	loop := NewLoop(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)
	defer s.Close()
	waitForState(t, s, StateConnected, 2*time.Second)

	reqBody, _ := wire.Marshal(&wire.ExistsRequest{Path: "/bar"})
	done := make(chan error, 1)
	err := s.Call(wire.OpExists, reqBody, KindStat, func(_ []byte, _ int64, cbErr error) {
		done <- cbErr
	})
	require.NoError(t, err)

	select {
	case cbErr := <-done:
		require.ErrorIs(t, cbErr, zkerr.ErrConnectionLoss)
	case <-time.After(2 * time.Second):
		t.Fatal("pending completion was never drained")
	}

	select {
	case <-done:
		t.Fatal("pending completion was drained a second time")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestAddAuthFailureIsTerminal(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(_ net.Conn, hdr *wire.RequestHeader, body []byte) ([]byte, int32, bool) {
		if wire.OpCode(hdr.Xid) == wire.XidAuth {
			return nil, int32(zkerr.NoAuth), false
		}
		return nil, 0, false
	}
	fs.acceptOnce(t)

	s := New(Config{Endpoints: fs.addr(), SessionTimeout: time.Second, ConnectTimeout: time.Second})
	loop := NewLoop(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)
	defer s.Close()
	waitForState(t, s, StateConnected, 2*time.Second)

	done := make(chan error, 1)
	s.AddAuth("digest", []byte("user:pass"), func(err error) { done <- err })

	select {
	case err := <-done:
		require.ErrorIs(t, err, zkerr.ErrNoAuth)
	case <-time.After(2 * time.Second):
		t.Fatal("auth completion never fired")
	}
	waitForState(t, s, StateAuthFailed, 2*time.Second)
}

func TestWatchEventIsDeliveredWithoutConsumingPending(t *testing.T) {
	fs := newFakeServer(t)
	events := make(chan Event, 4)
	fs.handle = func(conn net.Conn, hdr *wire.RequestHeader, body []byte) ([]byte, int32, bool) {
		evBody, _ := wire.EncodeWatcherEvent(&wire.WatcherEvent{Type: int32(EventChanged), State: int32(StateConnected), Path: "/watched"})
		evHdr, _ := wire.EncodeReplyHeader(&wire.ReplyHeader{Xid: int32(wire.XidWatch), Zxid: 2, Err: 0})
		frame := wire.NewSendFrame(wire.BuildFrame(evHdr, evBody))
		for !frame.Done() {
			_ = frame.Send(conn)
		}
		respBody, _ := wire.Marshal(&wire.ExistsResponse{})
		return respBody, 0, false
	}
	fs.acceptOnce(t)

	s := New(Config{
		Endpoints:      fs.addr(),
		SessionTimeout: time.Second,
		ConnectTimeout: time.Second,
		Watcher:        func(ev Event) { events <- ev },
	})
	loop := NewLoop(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)
	defer s.Close()
	waitForState(t, s, StateConnected, 2*time.Second)

	reqBody, _ := wire.Marshal(&wire.ExistsRequest{Path: "/watched", Watch: 1})
	done := make(chan struct{})
	err := s.Call(wire.OpExists, reqBody, KindStat, func([]byte, int64, error) { close(done) })
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("exists call never completed")
	}

	var sawWatch bool
	for i := 0; i < 4; i++ {
		select {
		case ev := <-events:
			if ev.Type == EventChanged && ev.Path == "/watched" {
				sawWatch = true
			}
		case <-time.After(500 * time.Millisecond):
		}
	}
	require.True(t, sawWatch, "expected to observe the pushed watch event")
}
