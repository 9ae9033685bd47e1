// Package shadow compares the simulated metrics pipeline against production
// reality. It runs the extraction and dial pipeline over externally supplied
// shadow events, derives the verdict governance would have reached, and flags
// metrics that diverge from observed production values. The comparator is
// read-only: it writes nothing and triggers no promotion.
package shadow

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/bookwright/steward/internal/event"
	"github.com/bookwright/steward/internal/governance"
	"github.com/bookwright/steward/internal/metrics"
	"github.com/bookwright/steward/internal/proposal"
)

// DefaultDivergenceThreshold is the relative difference beyond which a
// metric is flagged.
const DefaultDivergenceThreshold = 0.25

// Request carries one comparison: shadow events captured from production
// traffic plus the production-measured values for the same window.
type Request struct {
	Events            []event.Event      `json:"events"`
	ProductionMetrics map[string]float64 `json:"productionMetrics"`
	Tick              int64              `json:"tick"`
}

// Divergence is one metric whose shadow value strays from production by more
// than the threshold.
type Divergence struct {
	Metric     string  `json:"metric"`
	Shadow     float64 `json:"shadow"`
	Production float64 `json:"production"`
	Relative   float64 `json:"relative"`
}

// Report is the outcome of one comparison.
type Report struct {
	Dials               metrics.Snapshot    `json:"dials"`
	HypotheticalVerdict governance.Verdict  `json:"hypotheticalVerdict"`
	Reasons             []governance.Reason `json:"reasons"`
	Divergences         []Divergence        `json:"divergences"`
}

// Comparator wires the metrics pipeline and governance chain for shadow use.
type Comparator struct {
	registry  *metrics.Registry
	board     *metrics.Board
	gov       *governance.Engine
	threshold float64
	logger    *slog.Logger
}

// NewComparator builds a comparator over the given registry and dials.
// threshold <= 0 selects DefaultDivergenceThreshold.
func NewComparator(registry *metrics.Registry, board *metrics.Board, threshold float64, logger *slog.Logger) *Comparator {
	if threshold <= 0 {
		threshold = DefaultDivergenceThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{
		registry:  registry,
		board:     board,
		gov:       governance.NewEngine(nil, logger),
		threshold: threshold,
		logger:    logger,
	}
}

// Compare runs the full shadow pipeline for one request.
func (c *Comparator) Compare(req Request) (Report, error) {
	values := metrics.Extract(c.registry, req.Events)
	snapshot := c.board.Snapshot(values)

	// The governance chain needs a proposal to adjudicate; shadow evaluation
	// has none, so a synthetic no-op proposal stands in. Its content never
	// trips the privileged-action rule.
	dummy := &proposal.Proposal{
		ID:     "shadow-probe",
		Tick:   req.Tick,
		Domain: "shadow",
		Action: "observe",
		Source: proposal.SourceRule,
	}
	tick := req.Tick
	decision, err := c.gov.Evaluate(governance.Context{
		Proposal: dummy,
		Tick:     &tick,
		Dials:    snapshot,
	})
	if err != nil {
		return Report{}, fmt.Errorf("shadow: hypothetical verdict: %w", err)
	}

	divergences := c.diverging(values, req.ProductionMetrics)
	if len(divergences) > 0 {
		c.logger.Warn("shadow comparison diverges from production",
			"count", len(divergences), "tick", req.Tick)
	}

	return Report{
		Dials:               snapshot,
		HypotheticalVerdict: decision.Verdict,
		Reasons:             decision.Reasons,
		Divergences:         divergences,
	}, nil
}

// diverging flags metrics whose relative difference from production exceeds
// the threshold. Metrics production never reported are skipped; there is
// nothing to compare against.
func (c *Comparator) diverging(shadow, production map[string]float64) []Divergence {
	keys := make([]string, 0, len(production))
	for k := range production {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Divergence
	for _, k := range keys {
		prod := production[k]
		sh, ok := shadow[k]
		if !ok {
			continue
		}
		rel := relativeDiff(sh, prod)
		if rel > c.threshold {
			out = append(out, Divergence{Metric: k, Shadow: sh, Production: prod, Relative: rel})
		}
	}
	return out
}

// relativeDiff scales the absolute difference by the larger magnitude so
// the measure is symmetric. Two zeros never diverge.
func relativeDiff(a, b float64) float64 {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return math.Abs(a-b) / scale
}
