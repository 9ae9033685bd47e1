package replay

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwright/steward/internal/event"
	"github.com/bookwright/steward/internal/metrics"
	"github.com/bookwright/steward/internal/sim"
)

func replayConfig() sim.Config {
	return sim.Config{
		Seed:    7,
		Domains: []string{sim.DomainBookingLoad, sim.DomainTrustSignal},
		DomainConfigs: map[string]map[string]float64{
			sim.DomainBookingLoad: {"spikeProbability": 0.5},
		},
	}
}

func newTestRunner() *Runner {
	return NewRunner(metrics.MustDefaultRegistry(), nil)
}

func TestRunBaselineOnly(t *testing.T) {
	r := newTestRunner()
	report, err := r.Run(context.Background(), Request{
		Config:    replayConfig(),
		StartTick: 1,
		EndTick:   5,
	})
	require.NoError(t, err)

	assert.Equal(t, BaselineName, report.Baseline.Name)
	assert.Equal(t, int64(5), report.Baseline.Summary.Ticks)
	assert.NotEmpty(t, report.Baseline.Events)
	assert.Empty(t, report.Variants)
	assert.NotEmpty(t, report.Hash)
	assert.NotEmpty(t, report.RunID)
}

func TestRunHashExcludesRunID(t *testing.T) {
	r := newTestRunner()
	req := Request{Config: replayConfig(), StartTick: 1, EndTick: 4}

	first, err := r.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestRunVariantInterventionEvents(t *testing.T) {
	r := newTestRunner()
	report, err := r.Run(context.Background(), Request{
		Config:    replayConfig(),
		StartTick: 1,
		EndTick:   3,
		Variants: []VariantSpec{{
			Name: "throttled",
			Interventions: []Intervention{{
				Tick:       2,
				ProposalID: "p-123",
				Domain:     sim.DomainBookingLoad,
				Action:     "throttle-bookings",
			}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, report.Variants, 1)

	var interventions []event.Event
	for _, e := range report.Variants[0].Variant.Events {
		if e.Type == event.TypeIntervention {
			interventions = append(interventions, e)
		}
	}
	require.Len(t, interventions, 1)
	assert.Equal(t, int64(2), interventions[0].Tick)
	payload := interventions[0].Payload.(event.InterventionPayload)
	assert.Equal(t, "p-123", payload.ProposalID)

	// The intervention itself shows up in the event diff.
	var found bool
	for _, d := range report.Variants[0].EventDiffs {
		if d.Type == event.TypeIntervention {
			found = true
			assert.Equal(t, 0, d.BaselineCount)
			assert.Equal(t, 1, d.VariantCount)
		}
	}
	assert.True(t, found)
}

func TestRunVariantIdenticalToBaselineHasNoEventDiffs(t *testing.T) {
	// A variant with zero interventions replays the identical stream.
	r := newTestRunner()
	report, err := r.Run(context.Background(), Request{
		Config:    replayConfig(),
		StartTick: 1,
		EndTick:   5,
		Variants:  []VariantSpec{{Name: "noop"}},
	})
	require.NoError(t, err)
	require.Len(t, report.Variants, 1)
	assert.Empty(t, report.Variants[0].EventDiffs)
	for _, delta := range report.Variants[0].MetricDeltas {
		assert.Zero(t, delta.Delta, "metric %s", delta.Key)
	}
}

func TestRunDoesNotMutateLiveEngine(t *testing.T) {
	engine := sim.NewEngine(allowAll{}, nil, nil)
	require.NoError(t, engine.Start(replayConfig()))
	_, err := engine.Tick(context.Background())
	require.NoError(t, err)

	before := engine.Status()
	beforeEvents := engine.Events(0)

	r := newTestRunner()
	_, err = r.Run(context.Background(), Request{
		Config:    replayConfig(),
		StartTick: 1,
		EndTick:   10,
		Variants: []VariantSpec{{
			Name:          "aggressive",
			Interventions: []Intervention{{Tick: 5, Domain: sim.DomainBookingLoad, Action: "throttle-bookings"}},
		}},
	})
	require.NoError(t, err)

	after := engine.Status()
	assert.Equal(t, before.Tick, after.Tick)
	assert.Equal(t, len(beforeEvents), len(engine.Events(0)))
}

type allowAll struct{}

func (allowAll) Check() error { return nil }

func TestRunValidation(t *testing.T) {
	r := newTestRunner()
	ctx := context.Background()

	_, err := r.Run(ctx, Request{Config: replayConfig(), StartTick: 0, EndTick: 3})
	assert.Error(t, err)

	_, err = r.Run(ctx, Request{Config: replayConfig(), StartTick: 5, EndTick: 3})
	assert.Error(t, err)

	_, err = r.Run(ctx, Request{
		Config: replayConfig(), StartTick: 1, EndTick: 3,
		Variants: []VariantSpec{{Name: BaselineName}},
	})
	assert.Error(t, err)

	_, err = r.Run(ctx, Request{
		Config: replayConfig(), StartTick: 1, EndTick: 3,
		Variants: []VariantSpec{{
			Name:          "late",
			Interventions: []Intervention{{Tick: 9, Domain: "payments", Action: "x"}},
		}},
	})
	assert.Error(t, err)
}

func TestRunReportCached(t *testing.T) {
	r := newTestRunner()
	report, err := r.Run(context.Background(), Request{Config: replayConfig(), StartTick: 1, EndTick: 2})
	require.NoError(t, err)

	cached, ok := r.Get(report.RunID)
	require.True(t, ok)
	assert.Equal(t, report.Hash, cached.Hash)

	_, ok = r.Get("missing-run")
	assert.False(t, ok)
}

func TestRunCacheEviction(t *testing.T) {
	c := newRunCache(2)
	for i := 0; i < 3; i++ {
		c.put(&Report{RunID: fmt.Sprintf("run-%d", i)})
	}

	_, ok := c.get("run-0")
	assert.False(t, ok)
	_, ok = c.get("run-1")
	assert.True(t, ok)
	_, ok = c.get("run-2")
	assert.True(t, ok)
}

func TestDiffEventsSorted(t *testing.T) {
	mk := func(domain, typ string, n int) []event.Event {
		var out []event.Event
		for i := 0; i < n; i++ {
			out = append(out, event.Event{ID: fmt.Sprintf("%s-%s-%d", domain, typ, i), Domain: domain, Type: typ})
		}
		return out
	}

	baseline := append(mk("payments", "PAYMENT_FAILED", 2), mk("booking-load", "LOAD_SPIKE", 1)...)
	variant := append(mk("payments", "PAYMENT_FAILED", 1), mk("booking-load", "LOAD_SPIKE", 3)...)

	diffs := diffEvents(baseline, variant)
	require.Len(t, diffs, 2)
	assert.Equal(t, "booking-load", diffs[0].Domain)
	assert.Equal(t, "payments", diffs[1].Domain)
}
