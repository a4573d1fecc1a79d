package kernel

// HookFactory produces a facet for a subsystem, given the resolved build
// context and a window into the facets installed earlier in this planning
// pass (spec.md §3's Hook, §4.5 step 5).
type HookFactory func(ctx BuildCtx, api *HookAPI, subsystem *Subsystem) (*Facet, error)

// HookMeta is the declared metadata the resolver and builder need before
// ever calling the factory (spec.md §3's Hook metadata).
type HookMeta struct {
	Kind      string
	Required  []string
	Overwrite bool
	Attach    bool
	Contract  string
	Source    string
}

// Hook pairs metadata with the factory it governs.
type Hook struct {
	Meta    HookMeta
	Factory HookFactory

	// registrationIndex is assigned by Subsystem.Use and used by the
	// resolver as a deterministic tie-break (spec.md §4.4).
	registrationIndex int
}

// NewHook constructs a hook for the given kind.
func NewHook(kind string, factory HookFactory) Hook {
	return Hook{Meta: HookMeta{Kind: kind}, Factory: factory}
}

// Require declares the kinds this hook depends on.
func (h Hook) Require(kinds ...string) Hook {
	h.Meta.Required = append(h.Meta.Required, kinds...)
	return h
}

// Overwrite marks this hook as replacing a prior facet of the same kind.
func (h Hook) Overwrite(overwrite bool) Hook { h.Meta.Overwrite = overwrite; return h }

// Attach marks this hook's facet for attachment onto the subsystem.
func (h Hook) Attach(attach bool) Hook { h.Meta.Attach = attach; return h }

// Contract declares the contract this hook's facet must satisfy.
func (h Hook) Contract(name string) Hook { h.Meta.Contract = name; return h }

// Source records a diagnostic origin string for this hook.
func (h Hook) Source(source string) Hook { h.Meta.Source = source; return h }

// HookAPI is what a HookFactory receives as its second argument: a narrow
// window onto facets already installed earlier in this planning pass, so
// an overwrite hook can wrap a base facet without reaching into the whole
// FacetManager (spec.md §9's "typed accessor" redesign of api.__facets).
type HookAPI struct {
	previous map[string]*Facet
	registry *ContractRegistry
}

// GetPrevious returns the facet of kind installed earlier in this plan, if
// any — the base an overwrite hook wraps.
func (a *HookAPI) GetPrevious(kind string) (*Facet, bool) {
	f, ok := a.previous[kind]
	return f, ok
}

// Contracts exposes the contract registry a hook factory can consult (for
// example, to validate a sibling facet before depending on its shape).
func (a *HookAPI) Contracts() *ContractRegistry { return a.registry }
