package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectRequestRoundTrip(t *testing.T) {
	req := &ConnectRequest{
		ProtocolVersion: ProtocolVersion,
		LastZxidSeen:    1234,
		TimeOut:         9000,
		SessionID:       0x1234,
		Passwd:          make([]byte, 16),
	}
	data, err := EncodeConnectRequest(req)
	require.NoError(t, err)

	got, err := DecodeConnectRequest(data)
	require.NoError(t, err)
	require.Equal(t, req.ProtocolVersion, got.ProtocolVersion)
	require.Equal(t, req.LastZxidSeen, got.LastZxidSeen)
	require.Equal(t, req.TimeOut, got.TimeOut)
	require.Equal(t, req.SessionID, got.SessionID)
	require.Equal(t, req.Passwd, got.Passwd)
}

func TestConnectResponseRoundTrip(t *testing.T) {
	resp := &ConnectResponse{
		ProtocolVersion: ProtocolVersion,
		TimeOut:         6000,
		SessionID:       0x5678,
		Passwd:          []byte("0123456789abcdef"),
	}
	data, err := EncodeConnectResponse(resp)
	require.NoError(t, err)

	got, err := DecodeConnectResponse(data)
	require.NoError(t, err)
	require.Equal(t, resp.TimeOut, got.TimeOut)
	require.Equal(t, resp.SessionID, got.SessionID)
	require.Equal(t, resp.Passwd, got.Passwd)
}

func TestRequestHeaderRoundTrip(t *testing.T) {
	data, err := EncodeRequestHeader(&RequestHeader{Xid: 42, Type: int32(OpGetData)})
	require.NoError(t, err)

	got, rest, err := DecodeRequestHeader(data)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, int32(42), got.Xid)
	require.Equal(t, int32(OpGetData), got.Type)
}

func TestReplyHeaderRoundTripWithTrailingBody(t *testing.T) {
	hdr, err := EncodeReplyHeader(&ReplyHeader{Xid: 7, Zxid: 99, Err: 0})
	require.NoError(t, err)

	trailer := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	frame := append(append([]byte{}, hdr...), trailer...)

	got, rest, err := DecodeReplyHeader(frame)
	require.NoError(t, err)
	require.Equal(t, int32(7), got.Xid)
	require.Equal(t, int64(99), got.Zxid)
	require.Equal(t, int32(0), got.Err)
	require.Equal(t, trailer, rest)
}

func TestWatcherEventRoundTrip(t *testing.T) {
	ev := &WatcherEvent{Type: 3, State: 3, Path: "/x"}
	data, err := EncodeWatcherEvent(ev)
	require.NoError(t, err)

	got, err := DecodeWatcherEvent(data)
	require.NoError(t, err)
	require.Equal(t, ev.Type, got.Type)
	require.Equal(t, ev.State, got.State)
	require.Equal(t, ev.Path, got.Path)
}
