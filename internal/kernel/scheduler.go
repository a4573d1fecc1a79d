package kernel

import (
	"log/slog"
	"sort"
	"time"
)

// SchedulingStrategy picks a processing order over a queue snapshot. A
// strategy must be pure and deterministic for identical inputs and must
// never mutate its argument (spec.md §4.6's purity contract) — enforced
// here at the type level by taking a slice and always returning a freshly
// allocated one.
type SchedulingStrategy func(pairs []pendingMessage) []pendingMessage

const (
	StrategyPriority  = "priority"
	StrategyFIFO      = "fifo"
	StrategyLoadBased = "load-based"
	StrategyAdaptive  = "adaptive"
)

func stableSortedCopy(pairs []pendingMessage, less func(a, b pendingMessage) bool) []pendingMessage {
	out := make([]pendingMessage, len(pairs))
	copy(out, pairs)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func priorityStrategy(pairs []pendingMessage) []pendingMessage {
	return stableSortedCopy(pairs, func(a, b pendingMessage) bool {
		if a.opts.Atomic != b.opts.Atomic {
			return a.opts.Atomic
		}
		return a.enqueued.Before(b.enqueued)
	})
}

func fifoStrategy(pairs []pendingMessage) []pendingMessage {
	return stableSortedCopy(pairs, func(a, b pendingMessage) bool {
		return a.enqueued.Before(b.enqueued)
	})
}

func loadBasedStrategy(pairs []pendingMessage) []pendingMessage {
	return stableSortedCopy(pairs, func(a, b pendingMessage) bool {
		return a.estimated < b.estimated
	})
}

// estimateComplexity is the default, user-overridable load estimator
// (spec.md §4.6): a shallow heuristic over the message body's shape, with
// a fixed penalty subtracted for atomic messages so they still tend to
// sort earlier under load-based scheduling.
func estimateComplexity(msg *Message, opts SendOptions) float64 {
	var size float64
	switch body := msg.Body.(type) {
	case nil:
		size = 0
	case string:
		size = float64(len(body)) / 64
	case []byte:
		size = float64(len(body)) / 64
	case map[string]any:
		size = float64(len(body))
	case []any:
		size = float64(len(body))
	default:
		size = 1
	}
	if opts.Atomic {
		size -= 0.1
	}
	return size
}

func adaptiveStrategy(utilization func() float64) SchedulingStrategy {
	return func(pairs []pendingMessage) []pendingMessage {
		switch u := utilization(); {
		case u > 0.8:
			return loadBasedStrategy(pairs)
		case u > 0.4:
			return priorityStrategy(pairs)
		default:
			return fifoStrategy(pairs)
		}
	}
}

// ProcessStats is the result of one Scheduler.Process call.
type ProcessStats struct {
	Processed      int
	ProcessingTime time.Duration
	Errors         int
	Status         string
}

// Scheduler is the `scheduler` contract's backing value (spec.md §4.6).
type Scheduler struct {
	queue     *QueueFacet
	processor *ProcessorFacet

	strategies map[string]SchedulingStrategy
	active     string

	maxMessagesPerSlice int
	lastProcessed       map[string]time.Time

	paused bool
}

// NewScheduler builds a scheduler over queue, dispatching picked pairs to
// processor, defaulting to the priority strategy.
func NewScheduler(queue *QueueFacet, processor *ProcessorFacet, maxMessagesPerSlice int) *Scheduler {
	s := &Scheduler{
		queue:               queue,
		processor:           processor,
		strategies:          make(map[string]SchedulingStrategy),
		active:              StrategyPriority,
		maxMessagesPerSlice: maxMessagesPerSlice,
		lastProcessed:       make(map[string]time.Time),
	}
	s.strategies[StrategyPriority] = priorityStrategy
	s.strategies[StrategyFIFO] = fifoStrategy
	s.strategies[StrategyLoadBased] = loadBasedStrategy
	s.strategies[StrategyAdaptive] = adaptiveStrategy(s.utilization)
	return s
}

func (s *Scheduler) utilization() float64 {
	capacity := s.queue.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(s.queue.Size()) / float64(capacity)
}

// RegisterStrategy adds a named strategy. Replacing "priority" is
// forbidden (spec.md §4.6).
func (s *Scheduler) RegisterStrategy(name string, strat SchedulingStrategy) error {
	if name == StrategyPriority {
		return NewError(KindValidation, "scheduler.registerstrategy", "cannot replace priority strategy")
	}
	s.strategies[name] = strat
	return nil
}

// SetStrategy activates a previously registered strategy by name. An
// unknown name falls back to priority with a logged warning, rather than
// failing the call (spec.md §4.6).
func (s *Scheduler) SetStrategy(name string, _ map[string]any) error {
	if _, ok := s.strategies[name]; !ok {
		slog.Warn("unknown scheduling strategy, falling back to priority", slog.String("requested", name))
		s.active = StrategyPriority
		return nil
	}
	s.active = name
	return nil
}

// Pause gates Process from selecting any more messages.
func (s *Scheduler) Pause() { s.paused = true }

// Resume clears the pause flag.
func (s *Scheduler) Resume() { s.paused = false }

// IsPaused reports the pause flag.
func (s *Scheduler) IsPaused() bool { return s.paused }

// Process runs up to maxMessagesPerSlice pick/dispatch cycles, stopping
// early if timeSliceMs elapses (spec.md §4.6). Resolves the Open Question
// on the getAvailableMessages race as (b): each iteration takes a fresh
// snapshot, and if RemoveExact can't find the picked pair (because a
// concurrent drop-oldest eviction already took it), the iteration
// resnapshots and retries rather than dispatching a stale pick.
func (s *Scheduler) Process(timeSliceMs int) ProcessStats {
	if s.paused {
		return ProcessStats{Status: "paused"}
	}

	deadline := time.Now().Add(time.Duration(timeSliceMs) * time.Millisecond)
	stats := ProcessStats{Status: "ok"}
	start := time.Now()

	for stats.Processed < s.maxMessagesPerSlice {
		if timeSliceMs > 0 && time.Now().After(deadline) {
			break
		}

		picked, ok := s.pickOne()
		if !ok {
			break
		}

		if !s.queue.RemoveExact(picked) {
			continue // lost the race to an eviction; resnapshot next loop
		}

		s.lastProcessed[picked.msg.ID] = time.Now()

		if _, err := s.processor.ProcessMessage(picked.msg, picked.opts); err != nil {
			stats.Errors++
		}
		stats.Processed++
	}

	stats.ProcessingTime = time.Since(start)
	return stats
}

func (s *Scheduler) pickOne() (pendingMessage, bool) {
	snapshot := s.queue.Snapshot()
	if len(snapshot) == 0 {
		return pendingMessage{}, false
	}
	strat := s.strategies[s.active]
	ordered := strat(snapshot)
	return ordered[0], true
}
