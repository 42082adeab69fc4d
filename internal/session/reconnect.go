package session

import "time"

// backoffFor returns the delay before the lap-th reconnect attempt
// (0-indexed), doubling from ReconnectBackoffBase and capping at
// ReconnectBackoffCap (DESIGN.md Open Question decision: spec.md left
// the endpoint-wrap backoff policy unspecified).
func (s *Session) backoffFor(lap int) time.Duration {
	base := s.cfg.ReconnectBackoffBase
	cap_ := s.cfg.ReconnectBackoffCap
	d := base
	for i := 0; i < lap && d < cap_; i++ {
		d *= 2
	}
	if d > cap_ {
		d = cap_
	}
	return d
}
