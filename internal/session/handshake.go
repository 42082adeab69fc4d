package session

import (
	"context"

	"github.com/marmos91/zkgo/internal/wire"
)

// buildHandshakeFrame encodes the fixed-layout connect request
// (spec.md §4.3).
func (s *Session) buildHandshakeFrame() (*wire.SendFrame, error) {
	s.mu.Lock()
	req := &wire.ConnectRequest{
		ProtocolVersion: wire.ProtocolVersion,
		LastZxidSeen:    s.lastZxid,
		TimeOut:         int32(s.timeout.Milliseconds()),
		SessionID:       s.sessionID,
		Passwd:          s.passwd,
	}
	s.mu.Unlock()

	body, err := wire.EncodeConnectRequest(req)
	if err != nil {
		return nil, err
	}
	return wire.NewSendFrame(body), nil
}

// handshakeOutcome is returned by applyHandshakeResponse so the
// reactor/loop driver knows whether to keep going or tear the
// connection down.
type handshakeOutcome int

const (
	handshakeConnected handshakeOutcome = iota
	handshakeExpired
)

// applyHandshakeResponse implements spec.md §4.3's session continuity
// rule: if the client presented a non-zero client id and the server
// returns a different session id, the session is EXPIRED; otherwise
// the server's timeout/session id/password become authoritative.
func (s *Session) applyHandshakeResponse(resp *wire.ConnectResponse) handshakeOutcome {
	s.mu.Lock()
	presented := s.sessionID
	s.mu.Unlock()

	if presented != 0 && resp.SessionID != presented {
		s.mu.Lock()
		s.sessionID = 0
		s.mu.Unlock()
		return handshakeExpired
	}

	s.mu.Lock()
	s.sessionID = resp.SessionID
	s.passwd = resp.Passwd
	if resp.TimeOut > 0 {
		s.timeout = msToDuration(resp.TimeOut)
	}
	s.mu.Unlock()
	return handshakeConnected
}

// handshake drives the blocking request/response exchange of spec.md
// §4.3 over a freshly dialed connection: send the ConnectRequest
// frame, read the ConnectResponse frame, and apply the session
// continuity rule. On a detected EXPIRED outcome the session
// transitions but the caller still tears the connection down (a fresh
// connect never gets ASSOCIATING->CONNECTED against a rejected id).
func (s *Session) handshake(ctx context.Context, conn connLike) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	defer conn.SetDeadline(noDeadline)

	frame, err := s.buildHandshakeFrame()
	if err != nil {
		return err
	}
	if err := flushFrame(conn, frame); err != nil {
		return err
	}

	rf := wire.NewRecvFrame()
	for !rf.Done() {
		if err := rf.Recv(conn); err != nil {
			return err
		}
	}
	resp, err := wire.DecodeConnectResponse(rf.Payload())
	if err != nil {
		return err
	}

	if s.applyHandshakeResponse(resp) == handshakeExpired {
		s.setState(StateExpired)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.SessionExpired()
		}
		return nil
	}
	return nil
}
