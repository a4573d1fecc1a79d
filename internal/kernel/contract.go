package kernel

import "reflect"

// Names of the seven contracts the Builder mandates (spec.md §4.3).
const (
	ContractRouter    = "router"
	ContractQueue     = "queue"
	ContractProcessor = "processor"
	ContractScheduler = "scheduler"
	ContractListeners = "listeners"
	ContractHierarchy = "hierarchy"
	ContractServer    = "server"
)

// ContractSpec names the minimal surface the core relies on for one
// contract: required method names (checked against facet.Value's method
// set via reflection, since facets are duck-typed Go values, not a shared
// interface), required property names (checked against facet.Properties),
// and an optional custom validator for anything structural checks can't
// express (spec.md §3's ContractSpec, §4.3's enforcement rules).
type ContractSpec struct {
	Name               string
	RequiredMethods    []string
	RequiredProperties []string
	Validate           func(ctx BuildCtx, api *HookAPI, subsystem *Subsystem, facet *Facet) error
}

// ContractRegistry maps contract name -> ContractSpec and enforces it at
// build time (spec.md §4.3).
type ContractRegistry struct {
	contracts map[string]ContractSpec
}

// NewContractRegistry builds an empty registry. The Builder takes one as an
// explicit dependency (spec.md §9's "global state" redesign note) rather
// than reaching for a package-level singleton, so tests can supply an
// isolated registry.
func NewContractRegistry() *ContractRegistry {
	return &ContractRegistry{contracts: make(map[string]ContractSpec)}
}

// Register adds a contract, failing if the name is already taken.
func (r *ContractRegistry) Register(spec ContractSpec) error {
	if _, exists := r.contracts[spec.Name]; exists {
		return NewError(KindValidation, "contractregistry.register", "duplicate-contract: "+spec.Name)
	}
	r.contracts[spec.Name] = spec
	return nil
}

// Get returns the named contract, if registered.
func (r *ContractRegistry) Get(name string) (ContractSpec, bool) {
	spec, ok := r.contracts[name]
	return spec, ok
}

// Enforce validates facet against the named contract, per spec.md §4.3's
// ordered checks: unknown contract, missing methods, missing properties,
// then the custom validator.
func (r *ContractRegistry) Enforce(name string, ctx BuildCtx, api *HookAPI, subsystem *Subsystem, facet *Facet) error {
	spec, ok := r.contracts[name]
	if !ok {
		return NewError(KindDependency, "contractregistry.enforce", "no-contract: "+name)
	}

	if missing := missingMethods(facet.Value, spec.RequiredMethods); len(missing) > 0 {
		return NewError(KindDependency, "contractregistry.enforce", "missing-methods: "+joinNames(missing))
	}

	if missing := missingProperties(facet.Properties, spec.RequiredProperties); len(missing) > 0 {
		return NewError(KindDependency, "contractregistry.enforce", "missing-properties: "+joinNames(missing))
	}

	if spec.Validate != nil {
		if err := spec.Validate(ctx, api, subsystem, facet); err != nil {
			return WrapError(KindDependency, "contractregistry.enforce", "validation-failed", err)
		}
	}

	return nil
}

func missingMethods(value any, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	var missing []string
	v := reflect.ValueOf(value)
	for _, name := range required {
		m := v.MethodByName(name)
		if !m.IsValid() {
			missing = append(missing, name)
		}
	}
	return missing
}

func missingProperties(properties map[string]any, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	var missing []string
	for _, name := range required {
		if _, ok := properties[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// registerBuiltinContracts installs the seven mandatory contracts
// (spec.md §4.3) onto a fresh registry. The required-method lists are the
// minimal surface the core components in this package actually call.
func registerBuiltinContracts(r *ContractRegistry) error {
	specs := []ContractSpec{
		{
			Name:            ContractRouter,
			RequiredMethods: []string{"RegisterRoute", "UnregisterRoute", "Match", "Route", "HasRoute", "GetRoutes"},
		},
		{
			Name:            ContractQueue,
			RequiredMethods: []string{"Accept", "Snapshot", "RemoveExact", "Size"},
		},
		{
			Name:            ContractProcessor,
			RequiredMethods: []string{"Accept", "ProcessMessage", "ProcessImmediately", "ProcessTick", "Stats"},
		},
		{
			Name:            ContractScheduler,
			RequiredMethods: []string{"Process", "SetStrategy", "RegisterStrategy", "Pause", "Resume", "IsPaused"},
		},
		{
			Name:            ContractListeners,
			RequiredMethods: []string{"On", "Off", "Emit"},
		},
		{
			Name:            ContractHierarchy,
			RequiredMethods: []string{"Children", "AddChild", "GetLineage", "Traverse", "TraverseBFS"},
		},
		{
			Name:            ContractServer,
			RequiredMethods: []string{"Start", "Stop"},
		},
	}

	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}
