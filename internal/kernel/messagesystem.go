package kernel

import "strings"

// MessageSystemStats tracks the top-level router's cumulative counters
// (spec.md §4.8).
type MessageSystemStats struct {
	MessagesRouted int
	RoutingErrors  int
	UnknownRoutes  int
}

// MessageSystemRouter is the top-level dispatcher: path scheme (the
// target subsystem's name, or the reserved "kernel") to subsystem
// (spec.md §4.8, C10). It is itself a facet of the MessageSystem
// subsystem, not a mandatory contract — nothing outside the kernel
// package constructs one directly.
type MessageSystemRouter struct {
	registry map[string]*Subsystem
	kernel   *kernelDispatch
	stats    MessageSystemStats
}

// kernelDispatch is the minimal surface the MessageSystemRouter needs
// from the kernel subsystem to route the reserved "kernel" scheme
// synchronously, without importing the full Kernel type and creating a
// cycle between the router and the thing that owns it.
type kernelDispatch struct {
	processor *ProcessorFacet
}

func newMessageSystemRouter() *MessageSystemRouter {
	return &MessageSystemRouter{registry: make(map[string]*Subsystem)}
}

func (r *MessageSystemRouter) attachKernel(processor *ProcessorFacet) {
	r.kernel = &kernelDispatch{processor: processor}
}

func (r *MessageSystemRouter) registerSubsystem(s *Subsystem) error {
	if _, exists := r.registry[s.Name]; exists {
		return NewError(KindValidation, "messagesystemrouter.registersubsystem", "duplicate-subsystem: "+s.Name)
	}
	r.registry[s.Name] = s
	return nil
}

func (r *MessageSystemRouter) unregisterSubsystem(name string) {
	delete(r.registry, name)
}

func schemeOf(path string) (string, bool) {
	idx := strings.Index(path, "://")
	if idx <= 0 {
		return "", false
	}
	return path[:idx], true
}

// route dispatches msg per spec.md §4.8: "kernel" goes straight to the
// kernel subsystem's processImmediately; everything else resolves to a
// registered subsystem and either processes immediately or enqueues.
// Every failure mode returns a failed Result; nothing here ever panics.
func (r *MessageSystemRouter) route(msg *Message, opts SendOptions) Result {
	scheme, ok := schemeOf(msg.Path)
	if !ok {
		r.stats.RoutingErrors++
		return failResult(msg.ID, NewError(KindRouting, "messagesystemrouter.route", "invalid-path: "+msg.Path))
	}

	if scheme == "kernel" {
		if r.kernel == nil {
			r.stats.RoutingErrors++
			return failResult(msg.ID, NewError(KindRouting, "messagesystemrouter.route", "kernel subsystem not attached"))
		}
		value, err := r.kernel.processor.ProcessImmediately(msg, opts)
		if err != nil {
			r.stats.RoutingErrors++
			return failResult(msg.ID, asKernelError(err))
		}
		r.stats.MessagesRouted++
		return okResult(msg.ID, value)
	}

	target, ok := r.registry[scheme]
	if !ok {
		r.stats.UnknownRoutes++
		return failResult(msg.ID, NewError(KindRouting, "messagesystemrouter.route", "No subsystem found for: "+scheme))
	}

	r.stats.MessagesRouted++
	return r.routeToSubsystem(msg, target, opts)
}

func (r *MessageSystemRouter) routeToSubsystem(msg *Message, target *Subsystem, opts SendOptions) Result {
	processorFacet, ok := target.Facets().Get(ContractProcessor)
	if !ok {
		return failResult(msg.ID, NewError(KindRouting, "messagesystemrouter.route", "no processor installed for: "+target.Name))
	}
	processor := processorFacet.Value.(*ProcessorFacet)

	immediate := opts.ProcessImmediately
	if v, ok := msg.Meta.GetCustomField("processImmediately"); ok {
		if b, ok := v.(bool); ok && b {
			immediate = true
		}
	}

	if immediate {
		value, err := processor.ProcessImmediately(msg, opts)
		if err != nil {
			return failResult(msg.ID, asKernelError(err))
		}
		return okResult(msg.ID, value)
	}

	if !processor.Accept(msg, opts) {
		return failResult(msg.ID, NewError(KindCapacity, "messagesystemrouter.route", "queue rejected message for: "+target.Name))
	}
	return okResult(msg.ID, nil)
}

func asKernelError(err error) *Error {
	var kerr *Error
	if as(err, &kerr) {
		return kerr
	}
	return WrapError(KindHandler, "messagesystemrouter.route", "handler error", err)
}

// MessageSystem is the kernel's own specialized subsystem: built via the
// same Builder as any other subsystem, carrying a fixed default-hooks set
// plus the messageSystemRouter and subsystem registry (spec.md §4.9).
type MessageSystem struct {
	sub    *Subsystem
	Router *MessageSystemRouter
}

// buildMessageSystem constructs and builds the MessageSystem subsystem.
func buildMessageSystem(builder *Builder, reportErr ErrorReporter) (*MessageSystem, error) {
	sub := NewSubsystem("messageSystem", nil)
	router := newMessageSystemRouter()

	sub.Use(NewHook("messageSystemRouter", func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
		return NewFacet("messageSystemRouter", router).WithAttach(true), nil
	}).Attach(true))
	for _, h := range DefaultHooks(1024, 64, Reject, reportErr) {
		sub.Use(h)
	}

	if err := builder.Build(sub); err != nil {
		return nil, err
	}

	return &MessageSystem{sub: sub, Router: router}, nil
}

// dispatch implements Dispatcher for AccessControl.sendProtected.
func (ms *MessageSystem) dispatch(msg *Message, opts SendOptions) (Result, error) {
	result := ms.Router.route(msg, opts)
	if !result.Success {
		return result, result.Error
	}
	return result, nil
}
