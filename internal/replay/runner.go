package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookwright/steward/internal/canon"
	"github.com/bookwright/steward/internal/event"
	"github.com/bookwright/steward/internal/metrics"
	"github.com/bookwright/steward/internal/sim"
)

// Runner executes replay requests against private world forks and keeps a
// bounded cache of recent reports.
type Runner struct {
	registry *metrics.Registry
	cache    *runCache
	logger   *slog.Logger
}

// NewRunner creates a runner. registry drives the per-tick metric
// extraction inside forks.
func NewRunner(registry *metrics.Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: registry,
		cache:    newRunCache(maxCachedRuns),
		logger:   logger,
	}
}

// Run validates the request, runs baseline plus every variant as isolated
// forks, and assembles the diff report. Variants run concurrently; results
// are assembled by position, so the report never depends on completion
// order.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	domains, err := sim.Resolve(req.Config.Domains)
	if err != nil {
		return nil, err
	}

	// Index 0 is the baseline; variant i lands at index i+1.
	forks := make([]Variant, len(req.Variants)+1)
	errs := make([]error, len(req.Variants)+1)

	var wg sync.WaitGroup
	runFork := func(idx int, name string, interventions []Intervention) {
		defer wg.Done()
		v, err := r.runFork(ctx, req, domains, name, interventions)
		forks[idx] = v
		errs[idx] = err
	}

	wg.Add(1)
	go runFork(0, BaselineName, nil)
	for i, spec := range req.Variants {
		wg.Add(1)
		go runFork(i+1, spec.Name, spec.Interventions)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	report := &Report{
		RunID:       uuid.Must(uuid.NewV7()).String(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		StartTick:   req.StartTick,
		EndTick:     req.EndTick,
		Baseline:    forks[0],
	}
	for _, v := range forks[1:] {
		report.Variants = append(report.Variants, VariantReport{
			Variant:      v,
			EventDiffs:   diffEvents(forks[0].Events, v.Events),
			MetricDeltas: diffMetrics(forks[0].Summary.FinalMetrics, v.Summary.FinalMetrics),
		})
	}

	hash, err := reportHash(report)
	if err != nil {
		return nil, err
	}
	report.Hash = hash

	r.cache.put(report)
	return report, nil
}

// Get returns a cached report by run ID.
func (r *Runner) Get(runID string) (*Report, bool) {
	return r.cache.get(runID)
}

// runFork executes one isolated fork over the requested tick range.
func (r *Runner) runFork(ctx context.Context, req Request, domains []sim.Domain, name string, interventions []Intervention) (Variant, error) {
	byTick := make(map[int64][]Intervention, len(interventions))
	for _, iv := range interventions {
		byTick[iv.Tick] = append(byTick[iv.Tick], iv)
	}

	world := sim.NewForkWorld(req.Config.Seed, req.StartTick, req.BaseEvents, req.Config.RingCapacity)

	v := Variant{
		Name:          name,
		MetricsByTick: make(map[int64]map[string]float64),
	}

	for tick := req.StartTick; tick <= req.EndTick; tick++ {
		if err := ctx.Err(); err != nil {
			return Variant{}, fmt.Errorf("replay fork %s: %w", name, err)
		}

		var pre []event.Spec
		for _, iv := range byTick[tick] {
			pre = append(pre, event.Spec{
				Domain: iv.Domain,
				Type:   event.TypeIntervention,
				Payload: event.InterventionPayload{
					ProposalID: iv.ProposalID,
					Domain:     iv.Domain,
					Action:     iv.Action,
				},
			})
		}

		emitted, err := world.Step(sim.StepConfig{
			Domains:              domains,
			DomainConfigs:        req.Config.DomainConfigs,
			FailureProbabilities: req.Config.FailureProbabilities,
			Pre:                  pre,
		})
		if err != nil {
			return Variant{}, fmt.Errorf("replay fork %s: %w", name, err)
		}

		v.Events = append(v.Events, emitted...)
		v.MetricsByTick[tick] = metrics.Extract(r.registry, world.Events())
	}

	v.Summary = Summary{
		EventCount:   len(v.Events),
		Ticks:        req.EndTick - req.StartTick + 1,
		FinalMetrics: v.MetricsByTick[req.EndTick],
	}
	return v, nil
}

// diffEvents groups both streams by (domain, type) and reports every pair
// whose count differs, sorted by (domain, type).
func diffEvents(baseline, variant []event.Event) []EventDiff {
	type key struct{ domain, typ string }
	counts := func(events []event.Event) map[key]int {
		m := make(map[key]int)
		for _, e := range events {
			m[key{e.Domain, e.Type}]++
		}
		return m
	}

	base := counts(baseline)
	vari := counts(variant)

	keys := make(map[key]bool, len(base)+len(vari))
	for k := range base {
		keys[k] = true
	}
	for k := range vari {
		keys[k] = true
	}

	var diffs []EventDiff
	for k := range keys {
		if base[k] == vari[k] {
			continue
		}
		diffs = append(diffs, EventDiff{
			Domain:        k.domain,
			Type:          k.typ,
			BaselineCount: base[k],
			VariantCount:  vari[k],
		})
	}
	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Domain != diffs[j].Domain {
			return diffs[i].Domain < diffs[j].Domain
		}
		return diffs[i].Type < diffs[j].Type
	})
	return diffs
}

// diffMetrics compares last-known values per metric key, sorted by key.
func diffMetrics(baseline, variant map[string]float64) []MetricDelta {
	keys := make(map[string]bool, len(baseline)+len(variant))
	for k := range baseline {
		keys[k] = true
	}
	for k := range variant {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	out := make([]MetricDelta, 0, len(sorted))
	for _, k := range sorted {
		out = append(out, MetricDelta{
			Key:      k,
			Baseline: baseline[k],
			Variant:  variant[k],
			Delta:    variant[k] - baseline[k],
		})
	}
	return out
}

// reportHash covers the report's deterministic content. RunID and
// GeneratedAt are excluded: identical streams hash identically no matter
// when or under which run they were produced.
func reportHash(rep *Report) (string, error) {
	return canon.Hash(canon.DomainReplayReport, map[string]any{
		"startTick": rep.StartTick,
		"endTick":   rep.EndTick,
		"baseline":  rep.Baseline,
		"variants":  rep.Variants,
	})
}
