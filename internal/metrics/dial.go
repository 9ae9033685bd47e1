package metrics

import (
	"fmt"
	"sort"
)

// Zone is a dial classification. Red is the most conservative zone; any
// value that escapes all configured ranges resolves to it.
type Zone string

const (
	ZoneGreen  Zone = "green"
	ZoneYellow Zone = "yellow"
	ZoneRed    Zone = "red"
)

// Range is a half-open interval [Lo, Hi).
type Range struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Contains reports membership in [Lo, Hi).
func (r Range) Contains(v float64) bool {
	return v >= r.Lo && v < r.Hi
}

// Dial classifies one metric into green/yellow/red. The three ranges must
// be contiguous and ordered according to the metric's direction: for
// lower-is-better metrics green is the lowest band, for higher-is-better
// metrics red is.
type Dial struct {
	Metric string `json:"metric"`
	Green  Range  `json:"green"`
	Yellow Range  `json:"yellow"`
	Red    Range  `json:"red"`
}

// Validate checks range shape and direction-aware ordering, independent of
// any run.
func (d Dial) Validate(dir Direction) error {
	for _, r := range []struct {
		name string
		rng  Range
	}{{"green", d.Green}, {"yellow", d.Yellow}, {"red", d.Red}} {
		if r.rng.Lo > r.rng.Hi {
			return fmt.Errorf("dial %s: %s range inverted [%v,%v]", d.Metric, r.name, r.rng.Lo, r.rng.Hi)
		}
	}

	var ordered []Range
	switch dir {
	case LowerIsBetter:
		ordered = []Range{d.Green, d.Yellow, d.Red}
	case HigherIsBetter:
		ordered = []Range{d.Red, d.Yellow, d.Green}
	default:
		return fmt.Errorf("dial %s: unknown direction %q", d.Metric, dir)
	}

	for i := 1; i < len(ordered); i++ {
		if ordered[i].Lo != ordered[i-1].Hi {
			return fmt.Errorf("dial %s: ranges must be contiguous, got gap or overlap at %v/%v",
				d.Metric, ordered[i-1].Hi, ordered[i].Lo)
		}
	}
	return nil
}

// Classify maps a value to its zone. Out-of-range values fail toward red,
// never toward an "unknown" state.
func (d Dial) Classify(v float64) Zone {
	switch {
	case d.Green.Contains(v):
		return ZoneGreen
	case d.Yellow.Contains(v):
		return ZoneYellow
	case d.Red.Contains(v):
		return ZoneRed
	default:
		return ZoneRed
	}
}

// Reading is one classified metric value.
type Reading struct {
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Zone      Zone      `json:"zone"`
	Direction Direction `json:"direction"`
}

// Snapshot maps metric ID to its classified reading at one point in time.
type Snapshot map[string]Reading

// SortedMetrics returns the snapshot's metric IDs in sorted order, for
// deterministic iteration.
func (s Snapshot) SortedMetrics() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Board pairs a registry with validated dials and produces snapshots.
type Board struct {
	reg   *Registry
	dials map[string]Dial
}

// NewBoard validates every dial against its metric's direction. Dials for
// unregistered metrics are rejected.
func NewBoard(reg *Registry, dials []Dial) (*Board, error) {
	b := &Board{reg: reg, dials: make(map[string]Dial, len(dials))}
	for _, d := range dials {
		def, ok := reg.Lookup(d.Metric)
		if !ok {
			return nil, fmt.Errorf("dial references unregistered metric %s", d.Metric)
		}
		if err := d.Validate(def.Direction); err != nil {
			return nil, err
		}
		if _, dup := b.dials[d.Metric]; dup {
			return nil, fmt.Errorf("duplicate dial for metric %s", d.Metric)
		}
		b.dials[d.Metric] = d
	}
	return b, nil
}

// Snapshot classifies the given metric values against all configured dials.
// Metrics without a dial are omitted; metrics with a dial but no value in
// the map classify 0 (extraction guarantees presence in practice).
func (b *Board) Snapshot(values map[string]float64) Snapshot {
	snap := make(Snapshot, len(b.dials))
	for metric, d := range b.dials {
		def, _ := b.reg.Lookup(metric)
		v := values[metric]
		snap[metric] = Reading{
			Metric:    metric,
			Value:     v,
			Zone:      d.Classify(v),
			Direction: def.Direction,
		}
	}
	return snap
}

// Dials returns the configured dials keyed by metric.
func (b *Board) Dials() map[string]Dial {
	out := make(map[string]Dial, len(b.dials))
	for k, v := range b.dials {
		out[k] = v
	}
	return out
}

// DefaultDials is the built-in dial pack matching DefaultDefinitions.
func DefaultDials() []Dial {
	return []Dial{
		{Metric: MetricLoadSpikes, Green: Range{0, 2}, Yellow: Range{2, 4}, Red: Range{4, 1000}},
		{Metric: MetricLatencyP95, Green: Range{0, 300}, Yellow: Range{300, 800}, Red: Range{800, 100000}},
		{Metric: MetricErrorRate, Green: Range{0, 0.02}, Yellow: Range{0.02, 0.05}, Red: Range{0.05, 1.01}},
		{Metric: MetricOpenTickets, Green: Range{0, 5}, Yellow: Range{5, 12}, Red: Range{12, 100000}},
		{Metric: MetricTrustScore, Red: Range{0, 0.5}, Yellow: Range{0.5, 0.7}, Green: Range{0.7, 1.01}},
	}
}
