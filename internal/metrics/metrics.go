// Package metrics turns event windows into numeric signals and classifies
// them against three-zone dials. Extraction and classification are pure
// functions; the registry is loaded once at process start and immutable.
package metrics

import (
	"fmt"
	"sort"
)

// Direction states which way a metric improves. Dial range ordering is
// validated against it.
type Direction string

const (
	HigherIsBetter Direction = "higher-is-better"
	LowerIsBetter  Direction = "lower-is-better"
)

// Registered metric IDs. Extraction always emits every one of these;
// a missing signal extracts to 0, never to an absent key.
const (
	MetricLoadSpikes  = "booking.load_spikes"
	MetricLatencyP95  = "booking.request_latency_p95"
	MetricErrorRate   = "payments.error_rate"
	MetricOpenTickets = "support.open_tickets"
	MetricTrustScore  = "trust.score"
)

// Definition is a static registry entry for one metric.
type Definition struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Unit      string    `json:"unit"`
	Direction Direction `json:"direction"`
}

// Registry holds the immutable metric definitions for a process.
type Registry struct {
	byID map[string]Definition
	ids  []string
}

// NewRegistry builds a registry, rejecting duplicate or malformed entries.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{byID: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("metric definition missing id")
		}
		if d.Direction != HigherIsBetter && d.Direction != LowerIsBetter {
			return nil, fmt.Errorf("metric %s: unknown direction %q", d.ID, d.Direction)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate metric definition %s", d.ID)
		}
		r.byID[d.ID] = d
		r.ids = append(r.ids, d.ID)
	}
	sort.Strings(r.ids)
	return r, nil
}

// DefaultDefinitions is the built-in metric set for the booking marketplace.
func DefaultDefinitions() []Definition {
	return []Definition{
		{ID: MetricLoadSpikes, Domain: "booking-load", Unit: "count", Direction: LowerIsBetter},
		{ID: MetricLatencyP95, Domain: "booking-load", Unit: "ms", Direction: LowerIsBetter},
		{ID: MetricErrorRate, Domain: "payments", Unit: "ratio", Direction: LowerIsBetter},
		{ID: MetricOpenTickets, Domain: "support-queue", Unit: "count", Direction: LowerIsBetter},
		{ID: MetricTrustScore, Domain: "trust-signal", Unit: "ratio", Direction: HigherIsBetter},
	}
}

// MustDefaultRegistry returns the registry for DefaultDefinitions.
func MustDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultDefinitions())
	if err != nil {
		panic(err)
	}
	return r
}

// IDs returns all registered metric IDs, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Lookup returns the definition for a metric ID.
func (r *Registry) Lookup(id string) (Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}
