package kernel

import "strings"

// RouteHandler is a registered route's behavior: receives the message, the
// sanitized send options (with any extracted path params merged into
// opts.Params), and returns a result or error (spec.md §4.8).
type RouteHandler func(msg *Message, opts SendOptions) (any, error)

// segment is one path component of a route pattern: a literal, or a named
// parameter captured into opts.Params (spec.md §4.8).
type segment struct {
	literal string
	isParam bool
}

// RouteEntry is one registered route (spec.md §3).
type RouteEntry struct {
	Pattern  string
	Handler  RouteHandler
	Metadata map[string]any

	segments []segment
}

func parsePattern(pattern string) []segment {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := make([]segment, len(parts))
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			segs[i] = segment{literal: p[1 : len(p)-1], isParam: true}
		} else {
			segs[i] = segment{literal: p}
		}
	}
	return segs
}

func matchSegments(segs []segment, parts []string) (map[string]string, bool) {
	if len(segs) != len(parts) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range segs {
		if seg.isParam {
			params[seg.literal] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// pathAfterScheme strips "scheme://" from a full message path, returning
// the part a subsystem router matches patterns against.
func pathAfterScheme(path string) string {
	if idx := strings.Index(path, "://"); idx >= 0 {
		return path[idx+3:]
	}
	return path
}

// Router is the `router` contract's backing value (spec.md §4.8, C9).
type Router struct {
	routes []*RouteEntry
}

// NewRouter constructs an empty subsystem router.
func NewRouter() *Router {
	return &Router{}
}

// RegisterRoute adds a route for pattern. Specificity among multiple
// matches is resolved at Match time, not here, so registration order is
// free (spec.md §4.8).
func (r *Router) RegisterRoute(pattern string, handler RouteHandler, meta map[string]any) *RouteEntry {
	entry := &RouteEntry{Pattern: pattern, Handler: handler, Metadata: meta, segments: parsePattern(pattern)}
	r.routes = append(r.routes, entry)
	return entry
}

// UnregisterRoute removes the first route exactly matching pattern.
func (r *Router) UnregisterRoute(pattern string) bool {
	for i, e := range r.routes {
		if e.Pattern == pattern {
			r.routes = append(r.routes[:i], r.routes[i+1:]...)
			return true
		}
	}
	return false
}

// Match finds the best route for path, applying spec.md §4.8's
// specificity order: literal segments first, fewer parameters first,
// longer patterns first, stable tiebreak by insertion order.
func (r *Router) Match(path string) (*RouteEntry, map[string]string, bool) {
	parts := strings.Split(strings.Trim(pathAfterScheme(path), "/"), "/")

	var bestEntry *RouteEntry
	var bestParams map[string]string
	var bestLiterals, bestParamCount, bestLength int

	for _, e := range r.routes {
		params, ok := matchSegments(e.segments, parts)
		if !ok {
			continue
		}
		literals, paramCount := countSegments(e.segments)
		length := len(e.segments)

		if bestEntry == nil || better(literals, paramCount, length, bestLiterals, bestParamCount, bestLength) {
			bestEntry, bestParams = e, params
			bestLiterals, bestParamCount, bestLength = literals, paramCount, length
		}
	}

	if bestEntry == nil {
		return nil, nil, false
	}
	return bestEntry, bestParams, true
}

func countSegments(segs []segment) (literals, params int) {
	for _, s := range segs {
		if s.isParam {
			params++
		} else {
			literals++
		}
	}
	return
}

// better reports whether candidate (literals, params, length) outranks
// current best, per the ordering literal-segments-first, fewer-params,
// longer-pattern.
func better(cLiterals, cParams, cLength, bLiterals, bParams, bLength int) bool {
	if cLiterals != bLiterals {
		return cLiterals > bLiterals
	}
	if cParams != bParams {
		return cParams < bParams
	}
	return cLength > bLength
}

// Route matches path and invokes the handler, returning nil, nil on no
// match (spec.md §4.8's routing contract).
func (r *Router) Route(msg *Message, opts SendOptions) (any, error) {
	entry, params, ok := r.Match(msg.Path)
	if !ok {
		return nil, nil
	}
	merged := opts
	if len(params) > 0 {
		merged.Params = mergeParams(opts.Params, params)
	}
	return entry.Handler(msg, merged)
}

func mergeParams(base map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// HasRoute reports whether pattern is registered verbatim.
func (r *Router) HasRoute(pattern string) bool {
	for _, e := range r.routes {
		if e.Pattern == pattern {
			return true
		}
	}
	return false
}

// GetRoutes returns a snapshot of registered routes, insertion order.
func (r *Router) GetRoutes() []*RouteEntry {
	return append([]*RouteEntry(nil), r.routes...)
}
