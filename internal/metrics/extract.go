package metrics

import (
	"math"
	"sort"

	"github.com/bookwright/steward/internal/event"
)

// Extract computes every registered metric over an event window.
// Pure: same window, same output. Every registered ID is present in the
// result; a metric with no applicable events extracts to 0.
func Extract(r *Registry, window []event.Event) map[string]float64 {
	out := make(map[string]float64, len(r.ids))
	for _, id := range r.ids {
		out[id] = 0
	}

	var (
		latencies   []float64
		paymentOK   int
		paymentFail int
	)

	for _, e := range window {
		switch e.Type {
		case event.TypeLoadSpike:
			out[MetricLoadSpikes]++
		case event.TypeRequestLatency:
			if ms, ok := latencyMs(e); ok {
				latencies = append(latencies, ms)
			}
		case event.TypePaymentOK:
			paymentOK++
		case event.TypePaymentFailed:
			paymentFail++
		case event.TypeTicketOpened:
			out[MetricOpenTickets]++
		case event.TypeTrustSample:
			if score, ok := trustScore(e); ok {
				// Last sample wins; the window is oldest-first.
				out[MetricTrustScore] = score
			}
		}
	}

	out[MetricLatencyP95] = p95(latencies)
	if total := paymentOK + paymentFail; total > 0 {
		out[MetricErrorRate] = float64(paymentFail) / float64(total)
	}

	return out
}

// p95 sorts the samples and indexes at ceil(0.95*n)-1, clamped to valid
// bounds. The exact tie-break is load-bearing: replay diffs compare these
// values bit-for-bit.
func p95(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	idx := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// latencyMs reads the latency sample from a typed payload, falling back to
// the open-map shape used by externally sourced events.
func latencyMs(e event.Event) (float64, bool) {
	switch p := e.Payload.(type) {
	case event.RequestLatencyPayload:
		return p.Ms, true
	case map[string]any:
		v, ok := p["ms"].(float64)
		return v, ok
	}
	return 0, false
}

func trustScore(e event.Event) (float64, bool) {
	switch p := e.Payload.(type) {
	case event.TrustSamplePayload:
		return p.Score, true
	case map[string]any:
		v, ok := p["score"].(float64)
		return v, ok
	}
	return 0, false
}
