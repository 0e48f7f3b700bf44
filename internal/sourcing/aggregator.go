package sourcing

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// namedSource pairs a configured Source with the label used for logging and
// declaration-order ordering (spec.md §4.1: "Ordering is source-declaration
// order, then input order within a source").
type namedSource struct {
	typeName string
	source   Source
}

// Aggregator maintains the process-wide, read-mostly instance aggregate
// described by spec.md §4.1, and answers All() and Match(cluster).
//
// Readers never block writers and vice versa: a refresh builds the new
// aggregate off to the side and then does a single atomic pointer swap
// (sync/atomic.Pointer), so a concurrent reader always sees either the
// entirely-old or entirely-new view, never a mix — the discipline spec.md
// §5 requires.
type Aggregator struct {
	log *slog.Logger

	sources       []namedSource
	modifications []string

	// lastGood holds each source's most recent successful contribution,
	// indexed by position in sources. A failing Get() leaves its entry
	// untouched (spec.md §4.1: "that source's *previous* contribution is
	// retained").
	mu       sync.Mutex
	lastGood [][]Instance

	aggregate atomic.Pointer[[]Instance]

	refreshing atomic.Bool
	warmed     atomic.Bool
}

// New constructs an Aggregator over the given sources (already built via
// sourcing.Build, in configuration-declared order) and the ordered list of
// modification names to apply to every instance before it enters the
// aggregate.
func New(log *slog.Logger, sources []Source, sourceTypes []string, modificationNames []string) *Aggregator {
	named := make([]namedSource, len(sources))
	for i, s := range sources {
		named[i] = namedSource{typeName: sourceTypes[i], source: s}
	}
	a := &Aggregator{
		log:           log,
		sources:       named,
		modifications: modificationNames,
		lastGood:      make([][]Instance, len(sources)),
	}
	empty := []Instance{}
	a.aggregate.Store(&empty)
	return a
}

// Refresh pulls every configured source's Get(), applies the modification
// pipeline, and atomically installs the new aggregate. If a tick is already
// in progress, this call is a no-op (spec.md §4.1 / §5: "executions never
// overlap: a second tick while one is running is skipped").
func (a *Aggregator) Refresh(ctx context.Context) {
	if !a.refreshing.CompareAndSwap(false, true) {
		a.log.Debug("refresh already in progress, skipping tick")
		return
	}
	defer a.refreshing.Store(false)

	var built []Instance
	a.mu.Lock()
	for i, ns := range a.sources {
		instances, err := ns.source.Get(ctx)
		if err != nil {
			a.log.Error("source refresh failed, retaining last-known-good",
				"source_type", ns.typeName, "error", err)
			instances = a.lastGood[i]
		} else {
			a.lastGood[i] = instances
		}

		for _, inst := range instances {
			out, ok, err := applyModifications(a.modifications, inst.Clone())
			if err != nil {
				a.log.Error("modification failed, dropping instance",
					"instance", inst.ResourceName(), "error", err)
				continue
			}
			if !ok {
				continue
			}
			built = append(built, out)
		}
	}
	a.mu.Unlock()

	a.aggregate.Store(&built)
	a.warmed.Store(true)
	a.log.Info("source aggregate refreshed", "instances", len(built))
}

// All returns every instance in the current aggregate, in
// source-declaration then input order.
func (a *Aggregator) All() []Instance {
	return *a.aggregate.Load()
}

// Match returns the subset of the current aggregate whose service_clusters
// intersects nodeCluster under glob rules (spec.md §3's MatchedView). The
// returned slice is never cached across requests — it's a fresh
// per-request projection over whichever aggregate snapshot was current at
// call time, so it is stable across repeated calls between refreshes
// (spec.md §8 property 6) without needing its own lock.
func (a *Aggregator) Match(nodeCluster string) []Instance {
	all := a.All()
	out := make([]Instance, 0, len(all))
	for _, inst := range all {
		if matchesCluster(inst.ServiceClusters, nodeCluster) {
			out = append(out, inst)
		}
	}
	return out
}

// Warmed reports whether at least one Refresh has completed, successfully
// or otherwise — used by the healthcheck endpoint to gate readiness on the
// synchronous startup warmup spec.md §3 requires.
func (a *Aggregator) Warmed() bool {
	return a.warmed.Load()
}

// RunScheduler drives Refresh on a timer until ctx is canceled. Call it in
// a goroutine alongside the HTTP server, mirroring the teacher's Watcher.Run
// event loop shape.
func (a *Aggregator) RunScheduler(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx)
		}
	}
}
