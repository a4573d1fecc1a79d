package kernel

import "time"

// ProcessorStats accumulates across every message the processor has
// handled since construction (spec.md §4.7).
type ProcessorStats struct {
	Processed      int
	Errors         int
	ProcessingTime time.Duration
}

// ErrorReporter is how a processor surfaces an auth failure without ever
// throwing it out to the scheduler (spec.md §4.7: "never throw auth
// failures out of the processor"). MessageSystem wires this to
// kernel://error/record/{type}.
type ErrorReporter func(errType string, cause error, msg *Message)

// ProcessorFacet is the `processor` contract's backing value (spec.md
// §4.7, C8). It resolves the router facet at call time, not at hook-build
// time, so an overwrite router installed later in the same subsystem is
// honored without the processor needing to be rebuilt.
type ProcessorFacet struct {
	subsystem *Subsystem
	queue     *QueueFacet
	reportErr ErrorReporter

	stats ProcessorStats
}

// NewProcessorFacet binds a processor to the subsystem it processes for
// and the queue it dequeues from.
func NewProcessorFacet(subsystem *Subsystem, queue *QueueFacet, reportErr ErrorReporter) *ProcessorFacet {
	return &ProcessorFacet{subsystem: subsystem, queue: queue, reportErr: reportErr}
}

// routeDispatcher is the part of a router facet the processor calls; both
// *Router and overwrite routers such as scopedRouter satisfy it.
type routeDispatcher interface {
	Route(msg *Message, opts SendOptions) (any, error)
}

func (p *ProcessorFacet) currentRouter() (routeDispatcher, bool) {
	facet, ok := p.subsystem.Facets().Get(ContractRouter)
	if !ok {
		return nil, false
	}
	router, ok := facet.Value.(routeDispatcher)
	return router, ok
}

// Accept enqueues msg+opts onto the subsystem's queue and reports whether
// the queue's policy admitted it. It records no processor statistics.
func (p *ProcessorFacet) Accept(msg *Message, opts SendOptions) bool {
	return p.queue.Accept(msg, opts)
}

// ProcessMessage routes and executes msg synchronously: resolves the
// current router, dispatches, and records statistics (spec.md §4.7).
func (p *ProcessorFacet) ProcessMessage(msg *Message, opts SendOptions) (any, error) {
	start := time.Now()
	router, ok := p.currentRouter()
	if !ok {
		p.stats.Errors++
		err := NewError(KindRouting, "processor.processmessage", "no router facet installed")
		return nil, err
	}

	result, err := router.Route(msg, opts.sanitized())
	p.stats.ProcessingTime += time.Since(start)

	if err != nil {
		p.stats.Errors++
		if KindOf(err) == KindAuth && p.reportErr != nil {
			p.reportErr("auth_failed", err, msg)
			return nil, nil
		}
		return nil, err
	}

	p.stats.Processed++
	return result, nil
}

// ProcessImmediately bypasses the queue entirely, used for kernel:// paths
// and any caller that set opts.ProcessImmediately (spec.md §4.7/§4.8).
func (p *ProcessorFacet) ProcessImmediately(msg *Message, opts SendOptions) (any, error) {
	return p.ProcessMessage(msg, opts)
}

// ProcessTick dequeues and processes exactly one pending pair, if any.
func (p *ProcessorFacet) ProcessTick() (any, error) {
	snapshot := p.queue.Snapshot()
	if len(snapshot) == 0 {
		return nil, nil
	}
	head := snapshot[0]
	if !p.queue.RemoveExact(head) {
		return nil, nil
	}
	return p.ProcessMessage(head.msg, head.opts)
}

// Stats returns a copy of the accumulated processor statistics.
func (p *ProcessorFacet) Stats() ProcessorStats {
	return p.stats
}
