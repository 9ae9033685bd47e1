// Package replay runs counterfactual "what-if" re-simulations. Each variant
// is a fully isolated fork of the world: a fresh state, the same RNG
// algorithm re-seeded identically, and no writes back to the live engine.
// The baseline variant (zero interventions) is the reference every other
// variant is diffed against.
package replay

import (
	"fmt"

	"github.com/bookwright/steward/internal/event"
	"github.com/bookwright/steward/internal/sim"
)

// BaselineName is reserved for the zero-intervention reference variant.
const BaselineName = "baseline"

// Intervention is one corrective action applied inside a fork at a given
// tick, before the domain pass runs.
type Intervention struct {
	Tick       int64  `json:"tick"`
	ProposalID string `json:"proposalId,omitempty"`
	Domain     string `json:"domain"`
	Action     string `json:"action"`
}

// VariantSpec names a fork and the ordered interventions it applies.
type VariantSpec struct {
	Name          string         `json:"name"`
	Interventions []Intervention `json:"interventions,omitempty"`
}

// Request describes one replay run.
type Request struct {
	// Config mirrors the live engine configuration the fork should run
	// under: seed, domains, tuning, fault probabilities.
	Config sim.Config `json:"config"`

	// StartTick..EndTick is the simulated range, inclusive. BaseEvents is
	// the prefix of history generated strictly before StartTick.
	StartTick  int64         `json:"startTick"`
	EndTick    int64         `json:"endTick"`
	BaseEvents []event.Event `json:"baseEvents,omitempty"`

	Variants []VariantSpec `json:"variants,omitempty"`
}

// Validate rejects malformed requests before any fork is created.
func (r Request) Validate() error {
	if err := r.Config.Validate(); err != nil {
		return err
	}
	if r.StartTick < 1 {
		return fmt.Errorf("replay: start tick must be >= 1, got %d", r.StartTick)
	}
	if r.EndTick < r.StartTick {
		return fmt.Errorf("replay: end tick %d before start tick %d", r.EndTick, r.StartTick)
	}
	seen := map[string]bool{BaselineName: true}
	for i, v := range r.Variants {
		if v.Name == "" {
			return fmt.Errorf("replay: variant %d has no name", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("replay: duplicate or reserved variant name %q", v.Name)
		}
		seen[v.Name] = true
		for _, iv := range v.Interventions {
			if iv.Tick < r.StartTick || iv.Tick > r.EndTick {
				return fmt.Errorf("replay: variant %q intervention at tick %d outside range [%d,%d]",
					v.Name, iv.Tick, r.StartTick, r.EndTick)
			}
			if iv.Domain == "" || iv.Action == "" {
				return fmt.Errorf("replay: variant %q has intervention with empty domain or action", v.Name)
			}
		}
	}
	return nil
}

// Variant is the outcome of one fork run.
type Variant struct {
	Name          string                       `json:"name"`
	Events        []event.Event                `json:"events"`
	MetricsByTick map[int64]map[string]float64 `json:"metricsByTick"`
	Summary       Summary                      `json:"summary"`
}

// Summary condenses a fork run.
type Summary struct {
	EventCount   int                `json:"eventCount"`
	Ticks        int64              `json:"ticks"`
	FinalMetrics map[string]float64 `json:"finalMetrics"`
}

// EventDiff reports a (domain, type) pair whose occurrence count differs
// between baseline and variant.
type EventDiff struct {
	Domain        string `json:"domain"`
	Type          string `json:"type"`
	BaselineCount int    `json:"baselineCount"`
	VariantCount  int    `json:"variantCount"`
}

// MetricDelta compares the last-known value of one metric key between
// baseline and variant.
type MetricDelta struct {
	Key      string  `json:"key"`
	Baseline float64 `json:"baseline"`
	Variant  float64 `json:"variant"`
	Delta    float64 `json:"delta"`
}

// VariantReport pairs a variant's outcome with its diff against baseline.
type VariantReport struct {
	Variant      Variant       `json:"variant"`
	EventDiffs   []EventDiff   `json:"eventDiffs"`
	MetricDeltas []MetricDelta `json:"metricDeltas"`
}

// Report is the complete outcome of one replay request. Hash covers the
// deterministic content only: RunID and GeneratedAt are excluded, so
// identical streams always hash identically.
type Report struct {
	RunID       string          `json:"runId"`
	GeneratedAt string          `json:"generatedAt,omitempty"`
	StartTick   int64           `json:"startTick"`
	EndTick     int64           `json:"endTick"`
	Baseline    Variant         `json:"baseline"`
	Variants    []VariantReport `json:"variants"`
	Hash        string          `json:"hash"`
}
