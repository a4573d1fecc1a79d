package kernel

// BuildCtx is the resolved configuration a subsystem's hooks run against:
// the deep-merged constructor config, hook-contributed defaults, and
// caller overrides (spec.md §4.5's planning contract, step 1). It is
// passed by value; Values is never mutated in place after resolveCtx
// returns it, only replaced wholesale by the next merge.
type BuildCtx struct {
	Values map[string]any
}

// NewBuildCtx wraps a raw config tree.
func NewBuildCtx(values map[string]any) BuildCtx {
	if values == nil {
		values = make(map[string]any)
	}
	return BuildCtx{Values: values}
}

// Get reads a top-level entry (e.g. "ms", "debug").
func (c BuildCtx) Get(key string) (any, bool) {
	v, ok := c.Values[key]
	return v, ok
}

// Debug reports the universal ctx.config.debug flag (spec.md §6).
func (c BuildCtx) Debug() bool {
	cfg := c.ConfigFor("")
	b, _ := cfg["debug"].(bool)
	return b
}

// ConfigFor returns the ctx.config.<kind> subtree for kind, or the whole
// ctx.config tree when kind is "". Always returns a non-nil map.
func (c BuildCtx) ConfigFor(kind string) map[string]any {
	root, _ := c.Values["config"].(map[string]any)
	if root == nil {
		return map[string]any{}
	}
	if kind == "" {
		return root
	}
	sub, _ := root[kind].(map[string]any)
	if sub == nil {
		return map[string]any{}
	}
	return sub
}

// deepMerge merges src into a copy of dst: nested maps merge recursively,
// any other value (including slices) is replaced wholesale by src's value,
// per spec.md §4.5's "nested objects merge, arrays replace" rule.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if srcSub, ok := v.(map[string]any); ok {
			if dstSub, ok := out[k].(map[string]any); ok {
				out[k] = deepMerge(dstSub, srcSub)
				continue
			}
		}
		out[k] = v
	}
	return out
}
