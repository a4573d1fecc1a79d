package kernel

import (
	"container/heap"
	"fmt"
)

// kernelServicesKind is the one required-kind name the resolver tolerates
// having no producer for: it's skipped while building the kernel's own
// bootstrap subsystems, before the MessageSystem facet they'd normally
// depend on exists yet (spec.md §4.4).
const kernelServicesKind = "kernelServices"

// resolveOrder runs the hook dependency resolver described in spec.md
// §4.4: a topological sort over hook instances (not kinds — an overwrite
// chain is a run of same-kind hooks that must execute in sequence), tied
// off by registration order, honoring both the required-kind edges (R2)
// and the overwrite-chain edges (R1). It returns the execution order as
// indices into hooks.
func resolveOrder(hooks []Hook) ([]int, error) {
	n := len(hooks)
	adj := make([][]int, n)
	indegree := make([]int, n)
	seenEdge := make([]map[int]bool, n)
	for i := range seenEdge {
		seenEdge[i] = make(map[int]bool)
	}

	addEdge := func(from, to int) {
		if from == to || seenEdge[from][to] {
			return
		}
		seenEdge[from][to] = true
		adj[from] = append(adj[from], to)
		indegree[to]++
	}

	// lastProducer is the last hook of each kind across the whole list, so
	// a required kind may come from a hook registered after the one that
	// requires it; lastHookOfKind only tracks the hooks seen so far.
	lastProducer := make(map[string]int)
	for i, h := range hooks {
		lastProducer[h.Meta.Kind] = i
	}
	lastHookOfKind := make(map[string]int)

	for i, h := range hooks {
		for _, required := range h.Meta.Required {
			producer, ok := lastProducer[required]
			if required == h.Meta.Kind {
				// An overwrite requiring its own kind depends on the facet
				// it overwrites, not on a later link of its chain.
				producer, ok = lastHookOfKind[required]
			}
			if !ok {
				if required == kernelServicesKind {
					continue
				}
				return nil, NewError(KindDependency, "resolver.resolve",
					fmt.Sprintf("missing-dependency: hook=%s kind=%s", hookLabel(h, i), required))
			}
			addEdge(producer, i)
		}

		if prev, ok := lastHookOfKind[h.Meta.Kind]; ok {
			if !h.Meta.Overwrite {
				return nil, NewError(KindDependency, "resolver.resolve",
					fmt.Sprintf("duplicate-facet: hook=%s kind=%s", hookLabel(h, i), h.Meta.Kind))
			}
			addEdge(prev, i)
		} else if h.Meta.Overwrite {
			return nil, NewError(KindDependency, "resolver.resolve",
				fmt.Sprintf("overwrite-without-base: hook=%s kind=%s", hookLabel(h, i), h.Meta.Kind))
		}

		lastHookOfKind[h.Meta.Kind] = i
	}

	// Kahn's algorithm, tie-broken by registration index via a min-heap.
	pq := &indexHeap{}
	heap.Init(pq)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			heap.Push(pq, i)
		}
	}

	order := make([]int, 0, n)
	remaining := indegree
	for pq.Len() > 0 {
		i := heap.Pop(pq).(int)
		order = append(order, i)
		for _, next := range adj[i] {
			remaining[next]--
			if remaining[next] == 0 {
				heap.Push(pq, next)
			}
		}
	}

	if len(order) != n {
		return nil, NewError(KindDependency, "resolver.resolve", "cyclic-dependency: "+describeCycle(hooks, remaining))
	}

	return order, nil
}

// indexHeap is a min-heap of hook indices, giving Kahn's algorithm a
// deterministic tie-break equal to original registration order.
type indexHeap []int

func (h indexHeap) Len() int            { return len(h) }
func (h indexHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)         { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func hookLabel(h Hook, index int) string {
	if h.Meta.Source != "" {
		return h.Meta.Source
	}
	return fmt.Sprintf("hook#%d(%s)", index, h.Meta.Kind)
}

// describeCycle names the kinds of every hook still blocked once Kahn's
// algorithm stalls — spec.md §8 requires a 2-cycle A->B->A name both kinds.
func describeCycle(hooks []Hook, remaining []int) string {
	var names string
	for i, r := range remaining {
		if r > 0 {
			if names != "" {
				names += ", "
			}
			names += hooks[i].Meta.Kind
		}
	}
	return names
}

// orderedKindsFrom derives the unique, first-occurrence kind order from a
// hook execution order — the order invariant 1/2 require for installing
// facets into the FacetManager (first occurrence of a kind already
// respects every dependency edge; later occurrences are overwrites of the
// same slot, not new slots).
func orderedKindsFrom(hooks []Hook, execOrder []int) []string {
	seen := make(map[string]bool)
	var kinds []string
	for _, idx := range execOrder {
		k := hooks[idx].Meta.Kind
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds
}
