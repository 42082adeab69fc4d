package wire

import (
	"bytes"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// ProtocolVersion is the handshake protocol version this client speaks
// (spec.md §4.3).
const ProtocolVersion int32 = 0

// ConnectRequest is the fixed-layout handshake request (spec.md §4.3):
//
//	protocolVersion:i32 | lastZxidSeen:i64 | timeOut:i32 | sessionId:i64 | passwd_len:i32 | passwd:16B
type ConnectRequest struct {
	ProtocolVersion int32
	LastZxidSeen    int64
	TimeOut         int32
	SessionID       int64
	Passwd          []byte
}

// ConnectResponse is the fixed-layout prime response (spec.md §4.3),
// excluding its own length prefix which is handled by the frame codec:
//
//	protocolVersion:i32 | timeOut:i32 | sessionId:i64 | passwd_len:i32 | passwd:16B
type ConnectResponse struct {
	ProtocolVersion int32
	TimeOut         int32
	SessionID       int64
	Passwd          []byte
}

// RequestHeader precedes every outbound request body (spec.md §6).
type RequestHeader struct {
	Xid  int32
	Type int32
}

// ReplyHeader precedes every inbound response body (spec.md §6).
type ReplyHeader struct {
	Xid  int32
	Zxid int64
	Err  int32
}

// WatcherEvent is the body of a server-pushed notification, xid=-1
// (spec.md §4.6, §6).
type WatcherEvent struct {
	Type  int32
	State int32
	Path  string
}

// EncodeConnectRequest marshals a handshake request.
func EncodeConnectRequest(r *ConnectRequest) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeConnectResponse unmarshals a handshake prime response.
func DecodeConnectResponse(data []byte) (*ConnectResponse, error) {
	var r ConnectResponse
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// EncodeRequestHeader marshals a request header.
func EncodeRequestHeader(h *RequestHeader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeReplyHeader unmarshals a reply header from the front of a
// frame payload, returning the remaining bytes (the response body, or
// the watcher event body for xid=-1).
func DecodeReplyHeader(data []byte) (*ReplyHeader, []byte, error) {
	r := &ReplyHeader{}
	n, err := xdr.Unmarshal(bytes.NewReader(data), r)
	if err != nil {
		return nil, nil, err
	}
	return r, data[n:], nil
}

// EncodeConnectResponse marshals a handshake prime response. Used by
// the client's test fake server and is otherwise a server-side
// concern (spec.md §1: the real server is out of scope).
func EncodeConnectResponse(r *ConnectResponse) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeConnectRequest unmarshals a handshake request. Used by the
// client's test fake server.
func DecodeConnectRequest(data []byte) (*ConnectRequest, error) {
	var r ConnectRequest
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// EncodeReplyHeader marshals a reply header. Used by the client's test
// fake server.
func EncodeReplyHeader(h *ReplyHeader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRequestHeader unmarshals a request header from the front of a
// frame payload, returning the remaining bytes. Used by the client's
// test fake server.
func DecodeRequestHeader(data []byte) (*RequestHeader, []byte, error) {
	h := &RequestHeader{}
	n, err := xdr.Unmarshal(bytes.NewReader(data), h)
	if err != nil {
		return nil, nil, err
	}
	return h, data[n:], nil
}

// EncodeWatcherEvent marshals a WatcherEvent body. Used by the
// client's test fake server.
func EncodeWatcherEvent(ev *WatcherEvent) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, ev); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWatcherEvent unmarshals a WatcherEvent body.
func DecodeWatcherEvent(data []byte) (*WatcherEvent, error) {
	var ev WatcherEvent
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// BuildFrame concatenates an encoded RequestHeader with an
// already-encoded request body into a single frame payload.
func BuildFrame(header []byte, body []byte) []byte {
	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	out = append(out, body...)
	return out
}
