package kernel

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageMetadata splits into an immutable fixed map (traceId, timestamp,
// custom fields set at construction) and a mutable map written to during
// routing (per SPEC_FULL.md §3). Only the owning subsystem's cooperative
// thread ever writes the mutable map, so no lock is required (SPEC_FULL.md
// §5).
type MessageMetadata struct {
	fixed   map[string]any
	mutable map[string]any
}

func newMetadata(traceID string, timestamp time.Time, custom map[string]any) MessageMetadata {
	fixed := make(map[string]any, len(custom)+2)
	for k, v := range custom {
		fixed[k] = v
	}
	fixed["traceId"] = traceID
	fixed["timestamp"] = timestamp
	return MessageMetadata{fixed: fixed, mutable: make(map[string]any)}
}

// GetTraceId returns the trace id carried in the fixed metadata.
func (m MessageMetadata) GetTraceId() string {
	v, _ := m.fixed["traceId"].(string)
	return v
}

// GetTimestamp returns the message's creation time.
func (m MessageMetadata) GetTimestamp() time.Time {
	v, _ := m.fixed["timestamp"].(time.Time)
	return v
}

// GetCustomField reads an immutable, constructor-supplied metadata field.
func (m MessageMetadata) GetCustomField(name string) (any, bool) {
	v, ok := m.fixed[name]
	return v, ok
}

// GetCustomMutableField reads a field set during routing/processing.
func (m MessageMetadata) GetCustomMutableField(name string) (any, bool) {
	v, ok := m.mutable[name]
	return v, ok
}

// SetMutableField records a field during routing/processing. Never touches
// the fixed map — the fixed/mutable split is the immutability boundary.
func (m MessageMetadata) SetMutableField(name string, value any) {
	m.mutable[name] = value
}

// Message is the kernel's unit of dispatch. Id is stable for the life of
// the message and doubles as the response-correlation id.
type Message struct {
	ID   string
	Path string
	Body any
	Meta MessageMetadata

	pooled bool
}

// NewMessage builds a message with a fresh id and trace id.
func NewMessage(path string, body any, custom map[string]any) Message {
	return Message{
		ID:   uuid.NewString(),
		Path: path,
		Body: body,
		Meta: newMetadata(uuid.NewString(), time.Now(), custom),
	}
}

// NewChildMessage builds a message that inherits its parent's trace id, per
// SPEC_FULL.md §3's trace-propagation invariant.
func NewChildMessage(parent Message, path string, body any, custom map[string]any) Message {
	return Message{
		ID:   uuid.NewString(),
		Path: path,
		Body: body,
		Meta: newMetadata(parent.Meta.GetTraceId(), time.Now(), custom),
	}
}

var messagePool = sync.Pool{
	New: func() any { return &Message{} },
}

// AcquireMessage takes a pooled message shell and initializes it. The
// returned pointer must be passed to Release once the caller is done with
// it; until then it behaves like any other *Message. Safe to call even when
// the pool is empty (sync.Pool falls back to New).
func AcquireMessage(path string, body any, custom map[string]any) *Message {
	ptr := messagePool.Get().(*Message)
	*ptr = NewMessage(path, body, custom)
	ptr.pooled = true
	return ptr
}

// Release returns a pooled message's backing shell to the pool. Only
// messages obtained from AcquireMessage should be released; calling it on
// a plain NewMessage value is a silent no-op.
func (m *Message) Release() {
	if !m.pooled {
		return
	}
	*m = Message{}
	messagePool.Put(m)
}
