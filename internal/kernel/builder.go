package kernel

import (
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync/atomic"
)

const defaultDepCacheCapacity = 64

// Builder compiles a subsystem's hook list into a live facet set (spec.md
// §4.5, C5). One Builder is shared by every subsystem a kernel builds: the
// dependency-graph cache is keyed only by hook signature, so sharing it
// across subsystems is exactly what makes it useful as a cache rather than
// a per-call scratchpad.
type Builder struct {
	contracts *ContractRegistry
	depCache  *depCache
}

// NewBuilder constructs a Builder against contracts, the registry every
// subsystem's contract-bearing facets are checked against.
func NewBuilder(contracts *ContractRegistry) *Builder {
	return &Builder{contracts: contracts, depCache: newDepCache(defaultDepCacheCapacity)}
}

// Plan resolves s's ctx and hook order without installing anything.
// Reuses s's last plan unconditionally when the ctx hash is unchanged
// (spec.md §4.5 step 2); otherwise consults the shared dependency-graph
// cache before invoking the resolver (step 3-4).
func (b *Builder) Plan(s *Subsystem) (*Plan, error) {
	resolvedCtx := s.resolveCtx()
	ctxHash := hashCtx(resolvedCtx)

	if s.lastPlan != nil && s.lastCtxHash == ctxHash {
		return s.lastPlan, nil
	}

	sig := hookSignature(s.hooks)
	var execOrder []int

	if entry, ok := b.depCache.get(sig); ok {
		if entry.err != nil {
			return nil, entry.err
		}
		execOrder = entry.execOrder
	} else {
		order, err := resolveOrder(s.hooks)
		b.depCache.put(&depCacheEntry{key: sig, execOrder: order, err: err})
		if err != nil {
			return nil, err
		}
		execOrder = order
	}

	plan, err := b.execute(s, resolvedCtx, execOrder)
	if err != nil {
		return nil, err
	}

	s.lastPlan = plan
	s.lastCtxHash = ctxHash
	return plan, nil
}

// execute runs every hook factory in execOrder, in order, and enforces
// each produced facet's declared contract (spec.md §4.5 steps 5-6).
func (b *Builder) execute(s *Subsystem, resolvedCtx BuildCtx, execOrder []int) (*Plan, error) {
	facetsByKind := make(map[string]*Facet)
	api := &HookAPI{previous: facetsByKind, registry: b.contracts}

	for _, idx := range execOrder {
		h := s.hooks[idx]

		facet, err := h.Factory(resolvedCtx, api, s)
		if err != nil {
			return nil, WrapError(KindDependency, "builder.plan", "hook factory failed for kind "+h.Meta.Kind, err)
		}
		if facet == nil {
			return nil, NewError(KindDependency, "builder.plan", "hook factory returned nil facet for kind "+h.Meta.Kind)
		}

		facet.Kind = h.Meta.Kind
		facet.Overwrite = h.Meta.Overwrite
		facet.Attach = h.Meta.Attach
		facet.ContractName = h.Meta.Contract
		if facet.Source == "" {
			facet.Source = h.Meta.Source
		}

		if facet.ContractName != "" {
			if err := b.contracts.Enforce(facet.ContractName, resolvedCtx, api, s, facet); err != nil {
				return nil, err
			}
		}

		facetsByKind[h.Meta.Kind] = facet
	}

	return &Plan{
		ResolvedCtx:  resolvedCtx,
		OrderedKinds: orderedKindsFrom(s.hooks, execOrder),
		FacetsByKind: facetsByKind,
		execOrder:    execOrder,
	}, nil
}

// Build plans (if needed) and installs s's facet set (spec.md §4.5's build
// execution contract).
func (b *Builder) Build(s *Subsystem) error {
	plan, err := b.Plan(s)
	if err != nil {
		return err
	}

	return s.facets.AddMany(plan.OrderedKinds, plan.FacetsByKind, AddManyOptions{
		Init:   true,
		Attach: s.attachFacet,
	})
}

// hashCtx computes an FNV-1a hash over ctx's canonical JSON encoding.
// encoding/json already sorts map[string]any keys when marshaling, so the
// encoding is canonical without any extra bookkeeping.
var unhashableCtxSeq atomic.Uint64

func hashCtx(ctx BuildCtx) uint64 {
	data, err := json.Marshal(ctx.Values)
	if err != nil {
		// Unmarshalable ctx values (e.g. a func) are never equal across
		// calls as far as caching is concerned; hash the error text plus a
		// per-call sequence number so such a ctx never hits the plan cache.
		data = strconv.AppendUint([]byte(err.Error()+"#"), unhashableCtxSeq.Add(1), 10)
	}
	h := fnv.New64a()
	_, _ = h.Write(data)
	return h.Sum64()
}
