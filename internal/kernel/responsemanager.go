package kernel

import (
	"sync"
	"time"
)

// PendingResponse tracks one outstanding responseRequired registration
// (spec.md §3/§4.10, C12).
type PendingResponse struct {
	CorrelationID string
	OwnerPKR      PKR
	ReplyTo       string
	TimeoutMs     int

	resolved bool
	timedOut bool
	timer    *time.Timer
}

// ProtectedSender is the hook the response manager uses to dispatch its
// synthetic timeout response through the kernel's own gate, rather than
// bypassing access control for its own traffic (spec.md §4.10's "dispatch
// it via kernel.sendProtected").
type ProtectedSender func(owner PKR, targetPath string, msg *Message, opts SendOptions) (Result, error)

// ResponseManager is the `response-manager` kernel child subsystem's
// backing value (spec.md §4.10, C12).
type ResponseManager struct {
	mu             sync.Mutex
	pendingByCID   map[string]*PendingResponse
	pendingByOwner map[PKR]map[string]*PendingResponse
	send           ProtectedSender
}

// NewResponseManager constructs an empty response manager that dispatches
// synthetic timeout responses through send.
func NewResponseManager(send ProtectedSender) *ResponseManager {
	return &ResponseManager{
		pendingByCID:   make(map[string]*PendingResponse),
		pendingByOwner: make(map[PKR]map[string]*PendingResponse),
		send:           send,
	}
}

// CorrelationIDLocators lists, in priority order, where a correlation id
// may be carried — the Open Question from spec.md §9 resolved by making
// the priority list public and inspectable. HandleResponse checks the
// first four; Message has no top-level inReplyTo or correlationId field,
// so the two "id field" entries are never matched.
func (rm *ResponseManager) CorrelationIDLocators() []string {
	return []string{
		"body.inReplyTo",
		"body.correlationId",
		"meta.inReplyTo",
		"meta.correlationId",
		"id field: inReplyTo",
		"id field: correlationId",
	}
}

// RegisterResponseRequiredFor registers msg.ID as awaiting a response,
// starting the single canonical timeout timer (spec.md §4.10).
func (rm *ResponseManager) RegisterResponseRequiredFor(owner PKR, msg *Message, req ResponseRequirement) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	cid := msg.ID
	if _, exists := rm.pendingByCID[cid]; exists {
		return NewError(KindValidation, "responsemanager.register", "already-registered: "+cid)
	}

	pending := &PendingResponse{
		CorrelationID: cid,
		OwnerPKR:      owner,
		ReplyTo:       req.ReplyTo,
		TimeoutMs:     req.TimeoutMs,
	}
	pending.timer = time.AfterFunc(time.Duration(req.TimeoutMs)*time.Millisecond, func() {
		rm.onTimeout(pending)
	})

	rm.pendingByCID[cid] = pending
	if rm.pendingByOwner[owner] == nil {
		rm.pendingByOwner[owner] = make(map[string]*PendingResponse)
	}
	rm.pendingByOwner[owner][cid] = pending

	return nil
}

// extractCorrelationID applies the first four CorrelationIDLocators
// entries, in order, to msg; a meta key is looked up in the fixed
// metadata first and then in the mutable metadata.
func extractCorrelationID(msg *Message, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if body, ok := msg.Body.(map[string]any); ok {
		if v, ok := body["inReplyTo"].(string); ok && v != "" {
			return v
		}
		if v, ok := body["correlationId"].(string); ok && v != "" {
			return v
		}
	}
	for _, key := range []string{"inReplyTo", "correlationId"} {
		v, ok := msg.Meta.GetCustomField(key)
		if !ok {
			v, ok = msg.Meta.GetCustomMutableField(key)
		}
		if s, isStr := v.(string); ok && isStr && s != "" {
			return s
		}
	}
	return ""
}

// HandleResponseResult is handleResponse's non-throwing outcome.
type HandleResponseResult struct {
	OK      bool
	Reason  string
	Pending *PendingResponse
}

// HandleResponse correlates an incoming response message against a
// pending registration (spec.md §4.10).
func (rm *ResponseManager) HandleResponse(msg *Message, explicitCorrelationID string) HandleResponseResult {
	cid := extractCorrelationID(msg, explicitCorrelationID)
	if cid == "" {
		return HandleResponseResult{OK: false, Reason: "no-correlation-id"}
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	pending, ok := rm.pendingByCID[cid]
	if !ok {
		return HandleResponseResult{OK: false, Reason: "unknown-correlation-id"}
	}
	if pending.resolved || pending.timedOut {
		return HandleResponseResult{OK: false, Reason: "already-resolved"}
	}

	pending.resolved = true
	pending.timer.Stop()
	rm.finalizeLocked(pending)

	return HandleResponseResult{OK: true, Pending: pending}
}

// GetReplyTo recovers the original reply path for a correlation id.
func (rm *ResponseManager) GetReplyTo(correlationID string) (string, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	p, ok := rm.pendingByCID[correlationID]
	if !ok {
		return "", false
	}
	return p.ReplyTo, true
}

// Cancel removes a pending registration without resolving or timing out.
func (rm *ResponseManager) Cancel(correlationID string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	pending, ok := rm.pendingByCID[correlationID]
	if !ok {
		return false
	}
	pending.timer.Stop()
	rm.finalizeLocked(pending)
	return true
}

// finalizeLocked removes pending from both tables. Caller must hold rm.mu.
func (rm *ResponseManager) finalizeLocked(pending *PendingResponse) {
	delete(rm.pendingByCID, pending.CorrelationID)
	if owned, ok := rm.pendingByOwner[pending.OwnerPKR]; ok {
		delete(owned, pending.CorrelationID)
		if len(owned) == 0 {
			delete(rm.pendingByOwner, pending.OwnerPKR)
		}
	}
}

// onTimeout fires once a pending registration's deadline elapses. Must be
// idempotent against a concurrent HandleResponse resolving the same entry
// first (spec.md §4.10).
func (rm *ResponseManager) onTimeout(pending *PendingResponse) {
	rm.mu.Lock()
	if pending.resolved || pending.timedOut {
		rm.mu.Unlock()
		return
	}
	pending.timedOut = true
	rm.finalizeLocked(pending)
	rm.mu.Unlock()

	body := map[string]any{
		"timeout":       true,
		"correlationId": pending.CorrelationID,
		"reason":        "Command timed out",
		"inReplyTo":     pending.CorrelationID,
		"error":         map[string]any{"kind": KindTimeout, "timeoutMs": pending.TimeoutMs},
	}
	msg := NewMessage(pending.ReplyTo, body, map[string]any{"inReplyTo": pending.CorrelationID})

	if rm.send == nil {
		return
	}
	_, _ = rm.send(pending.OwnerPKR, pending.ReplyTo, &msg, SendOptions{IsResponse: true})
}

// Dispose clears every pending timer and table (spec.md §4.10).
func (rm *ResponseManager) Dispose() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, p := range rm.pendingByCID {
		p.timer.Stop()
	}
	rm.pendingByCID = make(map[string]*PendingResponse)
	rm.pendingByOwner = make(map[PKR]map[string]*PendingResponse)
}
