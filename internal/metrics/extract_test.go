package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwright/steward/internal/event"
)

func mkEvent(t *testing.T, tick int64, domain, typ string, payload any) event.Event {
	t.Helper()
	e, err := event.New(7, tick, event.Spec{Domain: domain, Type: typ, Payload: payload})
	require.NoError(t, err)
	return e
}

func TestExtractEmptyWindowDefaultsToZero(t *testing.T) {
	r := MustDefaultRegistry()
	out := Extract(r, nil)

	assert.Len(t, out, len(r.IDs()))
	for _, id := range r.IDs() {
		v, present := out[id]
		assert.True(t, present, "metric %s missing", id)
		assert.Zero(t, v)
	}
}

func TestExtractCountsAndRates(t *testing.T) {
	r := MustDefaultRegistry()
	window := []event.Event{
		mkEvent(t, 1, "booking-load", event.TypeLoadSpike, event.LoadSpikePayload{Severity: 0.9}),
		mkEvent(t, 1, "booking-load", event.TypeLoadSpike, event.LoadSpikePayload{Severity: 0.3}),
		mkEvent(t, 1, "payments", event.TypePaymentOK, event.PaymentPayload{Amount: 10}),
		mkEvent(t, 1, "payments", event.TypePaymentOK, event.PaymentPayload{Amount: 20}),
		mkEvent(t, 1, "payments", event.TypePaymentOK, event.PaymentPayload{Amount: 30}),
		mkEvent(t, 2, "payments", event.TypePaymentFailed, event.PaymentPayload{Amount: 5, Reason: "card_declined"}),
		mkEvent(t, 2, "support-queue", event.TypeTicketOpened, event.TicketOpenedPayload{Category: "refund"}),
	}

	out := Extract(r, window)
	assert.Equal(t, 2.0, out[MetricLoadSpikes])
	assert.Equal(t, 0.25, out[MetricErrorRate])
	assert.Equal(t, 1.0, out[MetricOpenTickets])
	assert.Equal(t, 0.0, out[MetricTrustScore])
}

func TestExtractTrustScoreLastSampleWins(t *testing.T) {
	r := MustDefaultRegistry()
	window := []event.Event{
		mkEvent(t, 1, "trust-signal", event.TypeTrustSample, event.TrustSamplePayload{Score: 0.9}),
		mkEvent(t, 2, "trust-signal", event.TypeTrustSample, event.TrustSamplePayload{Score: 0.6}),
	}
	out := Extract(r, window)
	assert.Equal(t, 0.6, out[MetricTrustScore])
}

func TestExtractOpenMapPayloadFallback(t *testing.T) {
	r := MustDefaultRegistry()
	window := []event.Event{
		{ID: "x1", Tick: 1, Domain: "booking-load", Type: event.TypeRequestLatency,
			Payload: map[string]any{"ms": 150.0}},
		{ID: "x2", Tick: 1, Domain: "trust-signal", Type: event.TypeTrustSample,
			Payload: map[string]any{"score": 0.8}},
	}
	out := Extract(r, window)
	assert.Equal(t, 150.0, out[MetricLatencyP95])
	assert.Equal(t, 0.8, out[MetricTrustScore])
}

func TestP95TieBreak(t *testing.T) {
	// ceil(0.95*n)-1 indexing, exactly.
	cases := []struct {
		name    string
		samples []float64
		want    float64
	}{
		{"empty", nil, 0},
		{"single", []float64{42}, 42},
		{"two samples", []float64{10, 20}, 20},               // ceil(1.9)-1 = 1
		{"twenty samples", seq(1, 20), 19},                   // ceil(19)-1 = 18 -> value 19
		{"twenty-one samples", seq(1, 21), 20},               // ceil(19.95)-1 = 19 -> value 20
		{"unsorted input", []float64{30, 10, 20}, 30},        // ceil(2.85)-1 = 2
		{"hundred samples", seq(1, 100), 95},                 // ceil(95)-1 = 94 -> value 95
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p95(tc.samples))
		})
	}
}

func TestP95DoesNotMutateInput(t *testing.T) {
	samples := []float64{3, 1, 2}
	p95(samples)
	assert.Equal(t, []float64{3, 1, 2}, samples)
}

func seq(lo, hi int) []float64 {
	out := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, float64(i))
	}
	return out
}
