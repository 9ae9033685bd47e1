package governance

import (
	"fmt"
	"strings"

	"github.com/bookwright/steward/internal/metrics"
)

// Regression thresholds for replay-delta rules.
const (
	trustRegressionThreshold     = 0.1  // absolute drop in trust.score
	errorRateRegressionThreshold = 0.02 // absolute rise in payments.error_rate
	latencyRegressionFraction    = 0.2  // relative rise in latency p95
)

// privilegedActionMarkers flag actions that must carry a human override.
var privilegedActionMarkers = []string{"apply", "promote", "execute"}

// DefaultRules is the standard evaluation chain, in order. Every rule
// always runs; severities escalate, they never short-circuit.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "block-on-red-dial", Evaluate: blockOnRedDial},
		{ID: "block-on-trust-regression", Evaluate: blockOnTrustRegression},
		{ID: "block-on-error-rate-regression", Evaluate: blockOnErrorRateRegression},
		{ID: "warn-on-yellow-dial", Evaluate: warnOnYellowDial},
		{ID: "warn-on-latency-regression", Evaluate: warnOnLatencyRegression},
		{ID: "require-override-for-privileged-actions", Evaluate: requireOverrideForPrivilegedActions},
	}
}

func blockOnRedDial(ctx Context) Opinion {
	var red []string
	for _, id := range ctx.Dials.SortedMetrics() {
		if ctx.Dials[id].Zone == metrics.ZoneRed {
			red = append(red, id)
		}
	}
	if len(red) == 0 {
		return NoOpinion()
	}
	return Opine(Contribution{
		Verdict: VerdictBlock,
		Message: fmt.Sprintf("red dial on %s", strings.Join(red, ", ")),
	})
}

func blockOnTrustRegression(ctx Context) Opinion {
	delta, ok := deltaFor(ctx, metrics.MetricTrustScore)
	if !ok {
		return NoOpinion()
	}
	if delta >= -trustRegressionThreshold {
		return NoOpinion()
	}
	return Opine(Contribution{
		Verdict: VerdictBlock,
		Message: fmt.Sprintf("trust score regresses by %.3f in replay", -delta),
	})
}

func blockOnErrorRateRegression(ctx Context) Opinion {
	delta, ok := deltaFor(ctx, metrics.MetricErrorRate)
	if !ok {
		return NoOpinion()
	}
	if delta <= errorRateRegressionThreshold {
		return NoOpinion()
	}
	return Opine(Contribution{
		Verdict: VerdictBlock,
		Message: fmt.Sprintf("payment error rate rises by %.3f in replay", delta),
	})
}

func warnOnYellowDial(ctx Context) Opinion {
	var yellow []string
	for _, id := range ctx.Dials.SortedMetrics() {
		if ctx.Dials[id].Zone == metrics.ZoneYellow {
			yellow = append(yellow, id)
		}
	}
	if len(yellow) == 0 {
		return NoOpinion()
	}
	return Opine(Contribution{
		Verdict: VerdictWarn,
		Message: fmt.Sprintf("yellow dial on %s", strings.Join(yellow, ", ")),
	})
}

func warnOnLatencyRegression(ctx Context) Opinion {
	var baseline, delta float64
	found := false
	for _, d := range ctx.ReplayDeltas {
		if d.Key == metrics.MetricLatencyP95 {
			baseline, delta = d.Baseline, d.Delta
			found = true
			break
		}
	}
	if !found || baseline <= 0 {
		return NoOpinion()
	}
	if delta/baseline <= latencyRegressionFraction {
		return NoOpinion()
	}
	return Opine(Contribution{
		Verdict: VerdictWarn,
		Message: fmt.Sprintf("latency p95 rises %.0f%% in replay", 100*delta/baseline),
	})
}

func requireOverrideForPrivilegedActions(ctx Context) Opinion {
	if ctx.Proposal == nil {
		return NoOpinion()
	}
	action := strings.ToLower(ctx.Proposal.Action)
	for _, marker := range privilegedActionMarkers {
		if strings.Contains(action, marker) {
			reason := fmt.Sprintf("action %q requires human sign-off", ctx.Proposal.Action)
			return Opine(Contribution{
				Verdict:  VerdictWarn,
				Message:  reason,
				Override: &OverrideRequirement{RoleRequired: "admin", Reason: reason},
			})
		}
	}
	return NoOpinion()
}

// deltaFor finds a replay metric delta by key; ok is false when replay
// context is absent or the key is missing.
func deltaFor(ctx Context, key string) (float64, bool) {
	for _, d := range ctx.ReplayDeltas {
		if d.Key == key {
			return d.Delta, true
		}
	}
	return 0, false
}
