package kernel

// Kernel is the root object: it owns the Builder, the contract registry,
// the MessageSystem, and the four kernel child subsystems (spec.md §4.9,
// C11). Bootstrap order follows SPEC_FULL.md §4.1–4.10's C11 note precisely:
// build the MessageSystem, then build+register access-control,
// profile-registry, error-manager and response-manager as children of a
// "kernel" subsystem, then attach the kernel to the MessageSystem router
// so kernel:// paths dispatch synchronously.
type Kernel struct {
	Builder   *Builder
	Contracts *ContractRegistry
	MS        *MessageSystem

	kernelSub *Subsystem
	Access    *AccessControl
	Profiles  *ProfileRegistry
	Errors    *ErrorManager
	Responses *ResponseManager
}

// NewKernel boots a kernel: builds the MessageSystem, the "kernel"
// subsystem and its four domain children, and wires kernel:// routing.
func NewKernel() (*Kernel, error) {
	contracts := NewContractRegistry()
	if err := registerBuiltinContracts(contracts); err != nil {
		return nil, err
	}
	if err := registerStorageContract(contracts); err != nil {
		return nil, err
	}
	builder := NewBuilder(contracts)

	// The error manager's RecordError doubles as every processor's
	// ErrorReporter hook, including the MessageSystem's own, so the bare
	// value exists before anything is built and is wrapped into a proper
	// child subsystem once the kernel subsystem itself exists below.
	errorStore, err := NewErrorManager(256)
	if err != nil {
		return nil, err
	}
	reportErr := errorStore.RecordError

	ms, err := buildMessageSystem(builder, reportErr)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		Builder:   builder,
		Contracts: contracts,
		MS:        ms,
		Errors:    errorStore,
		Profiles:  NewProfileRegistry(),
	}

	k.Access = NewAccessControl(ms, k.Profiles)
	k.Responses = NewResponseManager(k.sendProtectedRaw)

	kernelSub := NewSubsystem("kernel", nil)
	for _, h := range DefaultHooks(1024, 64, Reject, reportErr) {
		kernelSub.Use(h)
	}
	if err := builder.Build(kernelSub); err != nil {
		return nil, err
	}
	k.kernelSub = kernelSub

	if err := k.buildChildSubsystems(reportErr); err != nil {
		return nil, err
	}

	processorFacet, _ := kernelSub.Facets().Get(ContractProcessor)
	ms.Router.attachKernel(processorFacet.Value.(*ProcessorFacet))

	routerFacet, _ := kernelSub.Facets().Get(ContractRouter)
	router := routerFacet.Value.(*Router)
	k.registerKernelRoutes(router)

	kernelIdentity := k.Access.Register("kernel", EntityKernel, NilPKR)
	kernelSub.Identity = &kernelIdentity

	return k, nil
}

// buildChildSubsystems builds access-control, profile-registry,
// error-manager and response-manager as real subsystems, each wrapping
// the already-constructed domain value under a custom attach-only kind —
// proving the Builder runs recursively over the kernel's own children
// (SPEC_FULL.md §4.1–4.10, C11) without re-deriving state that already exists.
func (k *Kernel) buildChildSubsystems(reportErr ErrorReporter) error {
	children := []struct {
		name string
		kind string
		val  any
	}{
		{"access-control", "accessControl", k.Access},
		{"profile-registry", "profileRegistry", k.Profiles},
		{"error-manager", "errorManager", k.Errors},
		{"response-manager", "responseManager", k.Responses},
	}

	for _, c := range children {
		sub := NewSubsystem(c.name, nil)
		sub.Use(NewHook(c.kind, func(v any) HookFactory {
			return func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
				return NewFacet(c.kind, v).WithAttach(true), nil
			}
		}(c.val)).Attach(true))
		for _, h := range DefaultHooks(256, 32, Reject, reportErr) {
			sub.Use(h)
		}
		if err := k.Builder.Build(sub); err != nil {
			return err
		}
		k.kernelSub.AddChild(sub)
	}
	return nil
}

// registerKernelRoutes installs the stable kernel:// paths spec.md §6
// names: error recording/querying and the response-manager's receive
// entry point.
func (k *Kernel) registerKernelRoutes(router *Router) {
	router.RegisterRoute("error/record/{type}", func(msg *Message, opts SendOptions) (any, error) {
		errType := opts.Params["type"]
		k.Errors.RecordError(errType, nil, msg)
		return nil, nil
	}, nil)

	router.RegisterRoute("error/query/recent", func(msg *Message, opts SendOptions) (any, error) {
		return k.Errors.QueryRecent(50), nil
	}, nil)

	router.RegisterRoute("error/query/by-type/{type}", func(msg *Message, opts SendOptions) (any, error) {
		return k.Errors.QueryByType(opts.Params["type"]), nil
	}, nil)

	router.RegisterRoute("error/query/summary", func(msg *Message, opts SendOptions) (any, error) {
		return k.Errors.QuerySummary(), nil
	}, nil)

	router.RegisterRoute("response/receive", func(msg *Message, opts SendOptions) (any, error) {
		return k.Responses.HandleResponse(msg, ""), nil
	}, nil)
}

// sendProtectedRaw is the ProtectedSender ResponseManager dispatches its
// synthetic timeout responses through: it forwards to
// AccessControl.sendProtected, so the owner's RightSend on the target is
// checked exactly as for Identity.SendProtected.
func (k *Kernel) sendProtectedRaw(owner PKR, targetPath string, msg *Message, opts SendOptions) (Result, error) {
	return k.Access.sendProtected(owner, targetPath, msg, opts)
}

// RegisterSubsystem registers sub as a top-level or child subsystem,
// creating its Principal/PKR/Identity and recursively registering any
// declared children via the hierarchy facet (spec.md §4.9).
func (k *Kernel) RegisterSubsystem(sub *Subsystem, kind EntityKind) (Identity, error) {
	if err := k.MS.Router.registerSubsystem(sub); err != nil {
		return Identity{}, err
	}

	var parentPKR PKR
	if sub.Parent != nil && sub.Parent.Identity != nil {
		parentPKR = sub.Parent.Identity.PKR
	}

	identity := k.Access.Register(sub.Name, kind, parentPKR)
	sub.Identity = &identity

	for _, child := range sub.Children() {
		if _, err := k.RegisterSubsystem(child, EntityChild); err != nil {
			return Identity{}, err
		}
	}

	return identity, nil
}

// UnregisterSubsystem removes sub from the MessageSystem registry and
// revokes its principal.
func (k *Kernel) UnregisterSubsystem(sub *Subsystem) {
	k.MS.Router.unregisterSubsystem(sub.Name)
	if sub.Identity != nil {
		k.Access.Revoke(sub.Identity.PKR)
	}
}

// Send routes msg through the MessageSystem router without an
// access-control check — the entry point for unregistered callers (tests,
// the demo binary) that never hold a PKR. Registered subsystems exchanging
// messages with each other go through Identity.SendProtected instead.
func (k *Kernel) Send(msg *Message, opts SendOptions) Result {
	return k.MS.Router.route(msg, opts)
}

// Stats returns the MessageSystem router's cumulative counters.
func (k *Kernel) Stats() MessageSystemStats {
	return k.MS.Router.stats
}

// Dispose tears down every kernel child subsystem and the response
// manager's timers.
func (k *Kernel) Dispose() error {
	k.Responses.Dispose()
	return k.kernelSub.Dispose()
}
