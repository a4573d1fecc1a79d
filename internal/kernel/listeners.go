package kernel

import "strings"

// ListenerHandler observes a message matching a pattern (spec.md §9's
// typed-pub/sub redesign of the original's "emitter" idiom).
type ListenerHandler func(msg *Message)

// Listeners is the `listeners` contract's backing value: typed pub/sub
// over (pattern, handler) pairs with glob-style matching on message
// paths, never the original's bare event-emitter surface.
type Listeners struct {
	subs map[string][]ListenerHandler
}

// NewListeners constructs an empty listener registry.
func NewListeners() *Listeners {
	return &Listeners{subs: make(map[string][]ListenerHandler)}
}

// On subscribes handler to pattern. Pattern may end in "*" to match any
// suffix of the message path.
func (l *Listeners) On(pattern string, handler ListenerHandler) {
	l.subs[pattern] = append(l.subs[pattern], handler)
}

// Off removes every handler subscribed to pattern.
func (l *Listeners) Off(pattern string) {
	delete(l.subs, pattern)
}

// Emit invokes every handler whose pattern matches msg.Path.
func (l *Listeners) Emit(msg *Message) {
	for pattern, handlers := range l.subs {
		if !globMatch(pattern, msg.Path) {
			continue
		}
		for _, h := range handlers {
			h(msg)
		}
	}
}

func globMatch(pattern, path string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == path
}
