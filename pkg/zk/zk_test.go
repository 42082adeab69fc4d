package zk

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

// fakeServer is a minimal in-process stand-in for the coordination
// service, mirroring internal/session's test fake: it performs the
// handshake with a fixed session identity, then dispatches subsequent
// frames to a test-supplied handler. Exercised here at the pkg/zk
// level so the op bodies' marshal/unmarshal round trip is covered end
// to end, not just internal/session's frame plumbing.
type fakeServer struct {
	ln     net.Listener
	handle func(hdr *wire.RequestHeader, body []byte) (replyBody []byte, errCode int32)
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fs := &fakeServer{ln: ln}
	go fs.serve()
	return fs
}

func (fs *fakeServer) addr() string {
	return fs.ln.Addr().String()
}

func (fs *fakeServer) serve() {
	for {
		conn, err := fs.ln.Accept()
		if err != nil {
			return
		}
		go fs.handleConn(conn)
	}
}

func (fs *fakeServer) handleConn(conn net.Conn) {
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
	respBody, _ := wire.EncodeConnectResponse(&wire.ConnectResponse{
		ProtocolVersion: wire.ProtocolVersion,
		TimeOut:         req.TimeOut,
		SessionID:       7,
		Passwd:          []byte("0123456789abcdef"),
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
		replyBody, errCode := fs.handle(hdr, body)
		replyHdr, _ := wire.EncodeReplyHeader(&wire.ReplyHeader{Xid: hdr.Xid, Zxid: 1, Err: errCode})
		frame := wire.NewSendFrame(wire.BuildFrame(replyHdr, replyBody))
		for !frame.Done() {
			if err := frame.Send(conn); err != nil {
				return
			}
		}
	}
}

func dialFake(t *testing.T, fs *fakeServer) *Client {
	t.Helper()
	client, err := Dial(context.Background(), fs.addr(),
		WithConnectTimeout(time.Second),
		WithSessionTimeout(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.WaitForState(ctx, StateConnected))
	return client
}

func TestDialReachesConnected(t *testing.T) {
	fs := newFakeServer(t)
	client := dialFake(t, fs)
	defer client.Close()

	require.Equal(t, StateConnected, client.State())
	require.EqualValues(t, 7, client.SessionID())
}

func TestGetSyncRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		var req wire.GetDataRequest
		if _, err := wire.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal GetDataRequest: %v", err)
		}
		require.Equal(t, "/foo", req.Path)

		respBody, _ := wire.Marshal(&wire.GetDataResponse{Data: []byte("hello"), Stat: wire.Stat{Version: 3}})
		return respBody, 0
	}

	client := dialFake(t, fs)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	data, stat, err := client.GetSync(ctx, "/foo", false)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
	require.EqualValues(t, 3, stat.Version)
}

func TestSetSyncRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		var req wire.SetDataRequest
		if _, err := wire.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal SetDataRequest: %v", err)
		}
		require.Equal(t, "/foo", req.Path)
		require.Equal(t, "new-data", string(req.Data))

		respBody, _ := wire.Marshal(&wire.SetDataResponse{Stat: wire.Stat{Version: req.Version + 1}})
		return respBody, 0
	}

	client := dialFake(t, fs)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stat, err := client.SetSync(ctx, "/foo", []byte("new-data"), 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, stat.Version)
}

func TestCreateSyncRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		var req wire.CreateRequest
		if _, err := wire.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal CreateRequest: %v", err)
		}
		require.Equal(t, "/foo", req.Path)
		require.Equal(t, FlagEphemeral, req.Flags)

		respBody, _ := wire.Marshal(&wire.CreateResponse{Path: "/foo"})
		return respBody, 0
	}

	client := dialFake(t, fs)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	path, err := client.CreateSync(ctx, "/foo", []byte("data"), OpenACLUnsafe, FlagEphemeral)
	require.NoError(t, err)
	require.Equal(t, "/foo", path)
}

func TestDeleteSyncRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		return nil, 0
	}

	client := dialFake(t, fs)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, client.DeleteSync(ctx, "/foo", -1))
}

func TestDeleteSyncPropagatesServerError(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		return nil, -101 // NoNode
	}

	client := dialFake(t, fs)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := client.DeleteSync(ctx, "/missing", -1)
	require.Error(t, err)
}

func TestGetChildrenSyncRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		respBody, _ := wire.Marshal(&wire.GetChildren2Response{
			Children: []string{"a", "b"},
			Stat:     wire.Stat{NumChildren: 2},
		})
		return respBody, 0
	}

	client := dialFake(t, fs)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	children, stat, err := client.GetChildrenSync(ctx, "/parent", false)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, children)
	require.EqualValues(t, 2, stat.NumChildren)
}

func TestGetACLAndSetACLSyncRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	acl := []ACL{{Perms: PermAll, ID: AnyoneIdUnsafe}}
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		switch wire.OpCode(hdr.Type) {
		case wire.OpGetACL:
			respBody, _ := wire.Marshal(&wire.GetACLResponse{Acl: acl, Stat: wire.Stat{Version: 1}})
			return respBody, 0
		case wire.OpSetACL:
			respBody, _ := wire.Marshal(&wire.SetACLResponse{Stat: wire.Stat{Version: 2}})
			return respBody, 0
		default:
			return nil, 0
		}
	}

	client := dialFake(t, fs)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	gotACL, stat, err := client.GetACLSync(ctx, "/foo")
	require.NoError(t, err)
	require.Equal(t, acl, gotACL)
	require.EqualValues(t, 1, stat.Version)

	newStat, err := client.SetACLSync(ctx, "/foo", acl, 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, newStat.Version)
}

func TestSyncSyncRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		respBody, _ := wire.Marshal(&wire.SyncResponse{Path: "/foo"})
		return respBody, 0
	}

	client := dialFake(t, fs)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	path, err := client.SyncSync(ctx, "/foo")
	require.NoError(t, err)
	require.Equal(t, "/foo", path)
}

func TestMultiRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		require.Equal(t, wire.OpMulti, wire.OpCode(hdr.Type))

		// Decode the sub-op stream the way a real ensemble would, to
		// prove the request side frames {MultiHeader, body} triples
		// correctly, then build a reply where the first op (Create)
		// succeeds and the second (Delete) fails with NoNode.
		var createReq wire.CreateRequest
		var mh wire.MultiHeader
		n, err := wire.Unmarshal(body, &mh)
		require.NoError(t, err)
		rest := body[n:]
		n, err = wire.Unmarshal(rest, &createReq)
		require.NoError(t, err)
		rest = rest[n:]
		require.Equal(t, "/a", createReq.Path)

		var deleteReq wire.DeleteRequest
		n, err = wire.Unmarshal(rest, &mh)
		require.NoError(t, err)
		rest = rest[n:]
		n, err = wire.Unmarshal(rest, &deleteReq)
		require.NoError(t, err)
		rest = rest[n:]
		require.Equal(t, "/b", deleteReq.Path)

		n, err = wire.Unmarshal(rest, &mh)
		require.NoError(t, err)
		require.EqualValues(t, 1, mh.Done)

		var reply bytes.Buffer
		createHdr, _ := wire.Marshal(&wire.MultiHeader{Type: int32(wire.OpCreate), Done: 0, Err: 0})
		reply.Write(createHdr)
		createResp, _ := wire.Marshal(&wire.CreateResponse{Path: "/a"})
		reply.Write(createResp)

		deleteHdr, _ := wire.Marshal(&wire.MultiHeader{Type: int32(wire.OpDelete), Done: 0, Err: int32(zkerr.NoNode)})
		reply.Write(deleteHdr)

		doneHdr, _ := wire.Marshal(&wire.MultiHeader{Type: -1, Done: 1, Err: -1})
		reply.Write(doneHdr)

		return reply.Bytes(), 0
	}

	client := dialFake(t, fs)
	defer client.Close()

	done := make(chan struct{})
	var results []MultiResult
	var cbErr error
	err := client.Multi([]MultiOp{
		MultiCreate("/a", []byte("data"), OpenACLUnsafe, 0),
		MultiDelete("/b", -1),
	}, func(r []MultiResult, e error) {
		results = r
		cbErr = e
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Multi callback never fired")
	}

	require.NoError(t, cbErr)
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
}

func TestMultiRejectsEmptyOps(t *testing.T) {
	fs := newFakeServer(t)
	client := dialFake(t, fs)
	defer client.Close()

	err := client.Multi(nil, func(_ []MultiResult, _ error) {
		t.Fatal("callback should not run when Multi rejects the request before sending it")
	})
	require.Error(t, err)
}

func TestAddAuthSyncRoundTrip(t *testing.T) {
	fs := newFakeServer(t)
	fs.handle = func(hdr *wire.RequestHeader, body []byte) ([]byte, int32) {
		return nil, 0
	}

	client := dialFake(t, fs)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, client.AddAuthSync(ctx, "digest", []byte("user:cred")))
}
