package session

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

// driveReactor spins Process in a tight loop until cond is satisfied,
// standing in for the caller's own event loop (select/epoll/kqueue)
// waking on Interest().FD readiness — there is no real poller here,
// just a bound on how long the test spins before giving up.
func driveReactor(t *testing.T, r *Reactor, cond func() bool, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		_ = r.Process()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("reactor did not reach expected condition within %s", within)
}

func reactorDial(t *testing.T, s *Session, fs *fakeServer) *Reactor {
	t.Helper()
	host, portStr, err := net.SplitHostPort(fs.ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	r := NewReactor(s)
	require.NoError(t, r.Dial(net.ParseIP(host), port))
	return r
}

func TestReactorReachesConnected(t *testing.T) {
	fs := newFakeServer(t)
	fs.acceptOnce(t)

	s := New(Config{SessionTimeout: time.Second, ConnectTimeout: time.Second})
	r := reactorDial(t, s, fs)

	driveReactor(t, r, func() bool { return s.State() == StateConnected }, 2*time.Second)
	require.EqualValues(t, 42, s.SessionID())
}

func TestReactorCallRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(_ net.Conn, hdr *wire.RequestHeader, body []byte) ([]byte, int32, bool) {
		require.EqualValues(t, wire.OpGetData, hdr.Type)
		respBody, _ := wire.Marshal(&wire.GetDataResponse{Data: []byte("hello"), Stat: wire.Stat{Version: 3}})
		return respBody, 0, false
	}
	fs.acceptOnce(t)

	s := New(Config{SessionTimeout: time.Second, ConnectTimeout: time.Second})
	r := reactorDial(t, s, fs)
	driveReactor(t, r, func() bool { return s.State() == StateConnected }, 2*time.Second)

	reqBody, err := wire.Marshal(&wire.GetDataRequest{Path: "/foo"})
	require.NoError(t, err)

	var gotData []byte
	var gotErr error
	var done bool
	err = s.Call(wire.OpGetData, reqBody, KindData, func(body []byte, zxid int64, cbErr error) {
		var resp wire.GetDataResponse
		if cbErr == nil {
			_, cbErr = wire.Unmarshal(body, &resp)
			gotData = resp.Data
		}
		gotErr = cbErr
		done = true
	})
	require.NoError(t, err)

	driveReactor(t, r, func() bool { return done }, 2*time.Second)
	require.NoError(t, gotErr)
	require.Equal(t, []byte("hello"), gotData)
}

func TestReactorConnectionLossNotifiesConnectingBeforeDraining(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(conn net.Conn, hdr *wire.RequestHeader, body []byte) ([]byte, int32, bool) {
		conn.Close()
		return nil, 0, true
	}
	fs.acceptOnce(t)

	var events []State
	s := New(Config{
		SessionTimeout: time.Second,
		ConnectTimeout: time.Second,
		Watcher: func(ev Event) {
			if ev.Type == EventSession {
				events = append(events, ev.State)
			}
		},
	})
	r := reactorDial(t, s, fs)
	driveReactor(t, r, func() bool { return s.State() == StateConnected }, 2*time.Second)

	reqBody, _ := wire.Marshal(&wire.ExistsRequest{Path: "/bar"})
	var cbErr error
	var drained bool
	var eventsAtDrain []State
	err := s.Call(wire.OpExists, reqBody, KindStat, func(_ []byte, _ int64, err error) {
		cbErr = err
		eventsAtDrain = append([]State(nil), events...)
		drained = true
	})
	require.NoError(t, err)

	driveReactor(t, r, func() bool { return drained }, 2*time.Second)
	require.ErrorIs(t, cbErr, zkerr.ErrConnectionLoss)

	// The CONNECTING notification must already have reached the
	// watcher by the time the completion was drained above.
	require.NotEmpty(t, eventsAtDrain)
	require.Equal(t, StateConnecting, eventsAtDrain[len(eventsAtDrain)-1])
}

func TestReactorDialSupportsIPv6(t *testing.T) {
	ln, err := net.Listen("tcp", "[::1]:0")
	if err != nil {
		t.Skipf("IPv6 loopback unavailable: %v", err)
	}
	defer ln.Close()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	s := New(Config{SessionTimeout: time.Second, ConnectTimeout: time.Second})
	r := NewReactor(s)
	require.NoError(t, r.Dial(net.ParseIP(host), port))
}
