package kernel

// Subsystem is a named, composable unit: a hook list, the facet set those
// hooks produce, an optional identity once registered, and a place in the
// parent/child tree (spec.md §3's Subsystem, §9's "tree + parent pointer"
// redesign of the original's cyclic parent/child references).
type Subsystem struct {
	Name string

	baseConfig map[string]any
	overrides  map[string]any

	hooks  []Hook
	facets *FacetManager

	Parent   *Subsystem
	children []*Subsystem

	Identity *Identity

	lastPlan    *Plan
	lastCtxHash uint64
	attached    map[string]any
}

// NewSubsystem constructs an unbuilt subsystem named name, with baseConfig
// as the constructor config layer of its ctx (spec.md §4.5 step 1).
func NewSubsystem(name string, baseConfig map[string]any) *Subsystem {
	if baseConfig == nil {
		baseConfig = make(map[string]any)
	}
	return &Subsystem{
		Name:       name,
		baseConfig: baseConfig,
		facets:     NewFacetManager(),
		attached:   make(map[string]any),
	}
}

// Use registers hook, assigning it a deterministic registration index used
// by the resolver as a tie-break (spec.md §4.4).
func (s *Subsystem) Use(hook Hook) *Subsystem {
	hook.registrationIndex = len(s.hooks)
	s.hooks = append(s.hooks, hook)
	return s
}

// WithCtx deep-merges partial into the caller-override layer of s's ctx
// and drops any cached plan, per spec.md §4.5's `withCtx`.
func (s *Subsystem) WithCtx(partial map[string]any) *Subsystem {
	s.overrides = deepMerge(s.overrides, partial)
	s.Invalidate()
	return s
}

// Invalidate drops the cached plan without touching ctx.
func (s *Subsystem) Invalidate() {
	s.lastPlan = nil
	s.lastCtxHash = 0
}

// ClearCtx resets ctx to the base constructor config, discarding overrides
// and the cached plan.
func (s *Subsystem) ClearCtx() {
	s.overrides = nil
	s.Invalidate()
}

// resolveCtx deep-merges the constructor config and caller overrides into
// one BuildCtx, wrapped under the "config" root key ConfigFor reads from.
func (s *Subsystem) resolveCtx() BuildCtx {
	merged := deepMerge(s.baseConfig, s.overrides)
	return NewBuildCtx(map[string]any{"config": merged, "ms": s.Name})
}

// Facets exposes the installed facet set.
func (s *Subsystem) Facets() *FacetManager { return s.facets }

// attachFacet binds an attach-flagged facet's value onto the subsystem
// under its kind name, the Go equivalent of the original's property
// binding for caller ergonomics.
func (s *Subsystem) attachFacet(kind string, facet *Facet) error {
	s.attached[kind] = facet.Value
	return nil
}

// Attached returns the attach-flagged facet value installed under kind,
// if any.
func (s *Subsystem) Attached(kind string) (any, bool) {
	v, ok := s.attached[kind]
	return v, ok
}

// AddChild wires child under s in the hierarchy tree.
func (s *Subsystem) AddChild(child *Subsystem) {
	child.Parent = s
	s.children = append(s.children, child)
}

// Children returns s's direct children.
func (s *Subsystem) Children() []*Subsystem {
	return append([]*Subsystem(nil), s.children...)
}

// GetLineage returns the path from the root subsystem down to and
// including s.
func (s *Subsystem) GetLineage() []*Subsystem {
	var lineage []*Subsystem
	for n := s; n != nil; n = n.Parent {
		lineage = append([]*Subsystem{n}, lineage...)
	}
	return lineage
}

// Traverse walks the subtree rooted at s depth-first, pre-order.
func (s *Subsystem) Traverse(fn func(*Subsystem)) {
	fn(s)
	for _, c := range s.children {
		c.Traverse(fn)
	}
}

// TraverseBFS walks the subtree rooted at s breadth-first.
func (s *Subsystem) TraverseBFS(fn func(*Subsystem)) {
	queue := []*Subsystem{s}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		fn(n)
		queue = append(queue, n.children...)
	}
}

// Dispose tears down every installed facet, deepest children first.
func (s *Subsystem) Dispose() error {
	var firstErr error
	for _, c := range s.children {
		if err := c.Dispose(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.facets.DisposeAll(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
