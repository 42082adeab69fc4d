package session

import "time"

func msToDuration(ms int32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// noDeadline clears a previously set read/write deadline.
var noDeadline time.Time
