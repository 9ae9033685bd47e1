// Package sim implements the deterministic world simulation: domain
// plugins, the world state they advance, and the start/stop tick engine
// that owns both.
package sim

import (
	"fmt"
	"sort"

	"github.com/bookwright/steward/internal/event"
)

// DrawFunc hands a domain its next value from the world's seeded stream.
// Domains must consume randomness ONLY through it; any other source breaks
// global reproducibility.
type DrawFunc func() float64

// TickContext is what a domain sees for one tick: logical time, its own
// configuration, and the shared draw function.
type TickContext struct {
	Tick   int64
	Config map[string]float64
	Draw   DrawFunc
}

// DomainFunc is a pure event generator: (tick context) -> event specs.
type DomainFunc func(TickContext) []event.Spec

// Domain is a named, independently configurable plugin.
type Domain struct {
	Name     string
	Generate DomainFunc
}

// Builtin domain names.
const (
	DomainBookingLoad  = "booking-load"
	DomainPayments     = "payments"
	DomainSupportQueue = "support-queue"
	DomainTrustSignal  = "trust-signal"
)

var builtins = map[string]DomainFunc{
	DomainBookingLoad:  bookingLoad,
	DomainPayments:     payments,
	DomainSupportQueue: supportQueue,
	DomainTrustSignal:  trustSignal,
}

// DomainNames returns every builtin domain name, sorted.
func DomainNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve maps configured names to domains: unknown names are an error,
// duplicates collapse, and the result is sorted by name. The sort is not
// cosmetic — execution order fixes the RNG draw sequence.
func Resolve(names []string) ([]Domain, error) {
	seen := make(map[string]bool, len(names))
	var out []Domain
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		fn, ok := builtins[n]
		if !ok {
			return nil, fmt.Errorf("unknown domain %q", n)
		}
		out = append(out, Domain{Name: n, Generate: fn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// cfg reads a domain config value with a default.
func cfg(m map[string]float64, key string, def float64) float64 {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// bookingLoad models request pressure on the booking surface. Draw order is
// fixed: spike trigger, spike severity (only when triggered), then latency
// samples.
func bookingLoad(tc TickContext) []event.Spec {
	var specs []event.Spec

	spikeProb := cfg(tc.Config, "spikeProbability", 0.2)
	if tc.Draw() < spikeProb {
		specs = append(specs, event.Spec{
			Domain:  DomainBookingLoad,
			Type:    event.TypeLoadSpike,
			Payload: event.LoadSpikePayload{Severity: tc.Draw()},
		})
	}

	samples := int(cfg(tc.Config, "latencySamples", 3))
	base := cfg(tc.Config, "baseLatencyMs", 120)
	jitter := cfg(tc.Config, "latencyJitterMs", 80)
	for i := 0; i < samples; i++ {
		specs = append(specs, event.Spec{
			Domain:  DomainBookingLoad,
			Type:    event.TypeRequestLatency,
			Payload: event.RequestLatencyPayload{Ms: base + tc.Draw()*jitter},
		})
	}
	return specs
}

// payments models processed and failed payments.
func payments(tc TickContext) []event.Spec {
	var specs []event.Spec

	count := int(cfg(tc.Config, "paymentCount", 4))
	failProb := cfg(tc.Config, "failureProbability", 0.05)
	for i := 0; i < count; i++ {
		amount := 20 + tc.Draw()*180
		if tc.Draw() < failProb {
			specs = append(specs, event.Spec{
				Domain:  DomainPayments,
				Type:    event.TypePaymentFailed,
				Payload: event.PaymentPayload{Amount: amount, Reason: "card_declined"},
			})
			continue
		}
		specs = append(specs, event.Spec{
			Domain:  DomainPayments,
			Type:    event.TypePaymentOK,
			Payload: event.PaymentPayload{Amount: amount},
		})
	}
	return specs
}

var ticketCategories = []string{"access", "billing", "refund"}

// supportQueue opens at most one ticket per tick.
func supportQueue(tc TickContext) []event.Spec {
	prob := cfg(tc.Config, "ticketProbability", 0.3)
	if tc.Draw() >= prob {
		return nil
	}
	category := ticketCategories[int(tc.Draw()*float64(len(ticketCategories)))%len(ticketCategories)]
	return []event.Spec{{
		Domain:  DomainSupportQueue,
		Type:    event.TypeTicketOpened,
		Payload: event.TicketOpenedPayload{Category: category},
	}}
}

// trustSignal emits one marketplace trust sample per tick, drifting around
// a configurable base.
func trustSignal(tc TickContext) []event.Spec {
	base := cfg(tc.Config, "baseTrust", 0.8)
	drift := cfg(tc.Config, "drift", 0.1)

	score := base + (tc.Draw()-0.5)*drift
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return []event.Spec{{
		Domain:  DomainTrustSignal,
		Type:    event.TypeTrustSample,
		Payload: event.TrustSamplePayload{Score: score},
	}}
}
