package kernel

import "time"

// pendingMessage is the unit a subsystem's queue and scheduler operate on:
// a message paired with the send options it arrived with (spec.md §3's
// Subsystem queue, §4.6).
type pendingMessage struct {
	msg       *Message
	opts      SendOptions
	enqueued  time.Time
	estimated float64
}

// sameMessage reports whether two pending entries are the exact pair the
// scheduler picked — used by Queue.RemoveExact so a stale snapshot can't
// remove the wrong entry after a concurrent drop (spec.md §9's resolved
// Open Question on the getAvailableMessages race).
func sameMessage(a, b pendingMessage) bool {
	return a.msg == b.msg
}
