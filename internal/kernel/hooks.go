package kernel

// Default hook factories for the seven mandatory contracts (spec.md §4.3,
// §9's tagged-union-of-contracts redesign). Each returns a *Facet whose
// Value satisfies the contract it declares; the Builder enforces the
// contract once the factory returns (builder.go's execute).

// HookQueue installs the `queue` facet backing a subsystem's pending
// message buffer. An optional estimator overrides the default load-based
// scheduling weight (spec.md §4.6: "the estimator is user-injectable").
func HookQueue(capacity int, policy EvictionPolicy, estimator ...Estimator) Hook {
	return NewHook("queue", func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
		qf, err := NewQueueFacet(capacity, policy, estimator...)
		if err != nil {
			return nil, err
		}
		return NewFacet("queue", qf).WithContract(ContractQueue).WithAttach(true), nil
	}).Contract(ContractQueue).Attach(true)
}

// HookRouter installs the base `router` facet.
func HookRouter() Hook {
	return NewHook("router", func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
		return NewFacet("router", NewRouter()).WithContract(ContractRouter).WithAttach(true), nil
	}).Contract(ContractRouter).Attach(true)
}

// ScopeCheck gates a route match before the wrapped router's handler runs
// (spec.md §8 scenario 1's router-with-scopes example).
type ScopeCheck func(msg *Message, opts SendOptions) error

// scopedRouter decorates a base *Router with a pre-dispatch scope check,
// composed at plan time per spec.md §9's overwrite-chain-as-decorator
// note — it never mutates the base router, only wraps it.
type scopedRouter struct {
	base  *Router
	check ScopeCheck
}

func (r *scopedRouter) RegisterRoute(pattern string, handler RouteHandler, meta map[string]any) *RouteEntry {
	return r.base.RegisterRoute(pattern, handler, meta)
}
func (r *scopedRouter) UnregisterRoute(pattern string) bool { return r.base.UnregisterRoute(pattern) }
func (r *scopedRouter) Match(path string) (*RouteEntry, map[string]string, bool) {
	return r.base.Match(path)
}
func (r *scopedRouter) HasRoute(pattern string) bool { return r.base.HasRoute(pattern) }
func (r *scopedRouter) GetRoutes() []*RouteEntry     { return r.base.GetRoutes() }
func (r *scopedRouter) Route(msg *Message, opts SendOptions) (any, error) {
	if err := r.check(msg, opts); err != nil {
		return nil, err
	}
	return r.base.Route(msg, opts)
}

// HookRouterWithScopes overwrites a previously installed `router` facet,
// wrapping it with check. It requires its own kind (R2, spec.md §4.4) so
// the resolver orders it after the base router.
func HookRouterWithScopes(check ScopeCheck) Hook {
	return NewHook("router", func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
		prev, ok := api.GetPrevious("router")
		if !ok {
			return nil, NewError(KindDependency, "hooks.routerwithscopes", "overwrite-without-base: router")
		}
		base, ok := prev.Value.(*Router)
		if !ok {
			return nil, NewError(KindDependency, "hooks.routerwithscopes", "previous router facet has wrong type")
		}
		return NewFacet("router", &scopedRouter{base: base, check: check}).
			WithContract(ContractRouter).WithAttach(true).WithOverwrite(true), nil
	}).Require("router").Overwrite(true).Contract(ContractRouter).Attach(true)
}

// HookListeners installs the `listeners` pub/sub facet.
func HookListeners() Hook {
	return NewHook("listeners", func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
		return NewFacet("listeners", NewListeners()).WithContract(ContractListeners).WithAttach(true), nil
	}).Contract(ContractListeners).Attach(true)
}

// HookHierarchy installs the `hierarchy` facet, whose Value is the
// subsystem itself — Subsystem already implements Children/AddChild/
// GetLineage/Traverse/TraverseBFS directly (subsystem.go).
func HookHierarchy() Hook {
	return NewHook("hierarchy", func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
		return NewFacet("hierarchy", s).WithContract(ContractHierarchy).WithAttach(true), nil
	}).Contract(ContractHierarchy).Attach(true)
}

// HookProcessor installs the `processor` facet, depending on queue and
// router having already been installed.
func HookProcessor(reportErr ErrorReporter) Hook {
	return NewHook("processor", func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
		queueFacet, ok := api.GetPrevious("queue")
		if !ok {
			return nil, NewError(KindDependency, "hooks.processor", "missing-dependency: queue")
		}
		qf, ok := queueFacet.Value.(*QueueFacet)
		if !ok {
			return nil, NewError(KindDependency, "hooks.processor", "queue facet has wrong type")
		}
		return NewFacet("processor", NewProcessorFacet(s, qf, reportErr)).
			WithContract(ContractProcessor).WithAttach(true).WithDependencies("queue", "router"), nil
	}).Require("queue", "router").Contract(ContractProcessor).Attach(true)
}

// HookScheduler installs the `scheduler` facet, depending on queue and
// processor.
func HookScheduler(maxMessagesPerSlice int) Hook {
	return NewHook("scheduler", func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
		queueFacet, ok := api.GetPrevious("queue")
		if !ok {
			return nil, NewError(KindDependency, "hooks.scheduler", "missing-dependency: queue")
		}
		processorFacet, ok := api.GetPrevious("processor")
		if !ok {
			return nil, NewError(KindDependency, "hooks.scheduler", "missing-dependency: processor")
		}
		qf := queueFacet.Value.(*QueueFacet)
		pf := processorFacet.Value.(*ProcessorFacet)
		return NewFacet("scheduler", NewScheduler(qf, pf, maxMessagesPerSlice)).
			WithContract(ContractScheduler).WithAttach(true).WithDependencies("queue", "processor"), nil
	}).Require("queue", "processor").Contract(ContractScheduler).Attach(true)
}

// DefaultHooks returns the standard bundle every ordinary subsystem
// builds with: queue, router, listeners, hierarchy, processor, scheduler,
// in an order the resolver will reorder as needed but that already
// satisfies every Require() declared above (spec.md §3's "default-hooks
// bundle").
func DefaultHooks(queueCapacity, maxMessagesPerSlice int, policy EvictionPolicy, reportErr ErrorReporter) []Hook {
	return []Hook{
		HookQueue(queueCapacity, policy),
		HookRouter(),
		HookListeners(),
		HookHierarchy(),
		HookProcessor(reportErr),
		HookScheduler(maxMessagesPerSlice),
	}
}
