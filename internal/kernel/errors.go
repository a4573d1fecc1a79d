package kernel

import "fmt"

// Error kinds, per the taxonomy in SPEC_FULL.md §7. Kind is a string, not a
// distinct Go type per kind — callers branch on KindOf(err), not on a type
// switch over sentinel error values.
const (
	KindValidation = "validation"
	KindDependency = "dependency"
	KindRouting    = "routing"
	KindAuth       = "auth"
	KindTimeout    = "timeout"
	KindCapacity   = "capacity"
	KindHandler    = "handler"
)

// Error is the one error type the kernel constructs. Op names the failing
// operation (e.g. "builder.plan", "queue.enqueue"); Cause, when present, is
// wrapped so errors.Is/errors.As see through to it.
type Error struct {
	Kind  string
	Op    string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs a tagged kernel error.
func NewError(kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// WrapError constructs a tagged kernel error around a cause.
func WrapError(kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Cause: cause}
}

// KindOf returns the kind of err if it is (or wraps) a *Error, "" otherwise.
func KindOf(err error) string {
	var kerr *Error
	if as(err, &kerr) {
		return kerr.Kind
	}
	return ""
}

// as is a tiny local alias so this file only needs one stdlib import line
// for the common case; kept private since callers outside the package use
// errors.As directly against *kernel.Error.
func as(err error, target **Error) bool {
	for err != nil {
		if kerr, ok := err.(*Error); ok {
			*target = kerr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Result is the non-throwing shape returned by routing, send, and auth
// operations per SPEC_FULL.md §7's propagation policy: these never panic,
// they report failure through a value.
type Result struct {
	Success   bool
	Error     *Error
	MessageID string
	Value     any
}

func okResult(messageID string, value any) Result {
	return Result{Success: true, MessageID: messageID, Value: value}
}

func failResult(messageID string, err *Error) Result {
	return Result{Success: false, MessageID: messageID, Error: err}
}
