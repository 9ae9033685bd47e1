package harness

import (
	"fmt"

	"github.com/bookwright/steward/internal/metrics"
)

// Assertion validates one aspect of a scenario result.
type Assertion struct {
	// Type selects the check:
	//  - "event_count": events of EventType (optionally Domain) number Count
	//  - "dial_zone": the dial for Metric reads Zone
	//  - "metric_between": the value of Metric lies in [Min, Max]
	//  - "proposal_count": the final tick surfaced Count proposals
	Type string `yaml:"type"`

	EventType string `yaml:"event_type,omitempty"`
	Domain    string `yaml:"domain,omitempty"`
	Count     int    `yaml:"count,omitempty"`

	Metric string  `yaml:"metric,omitempty"`
	Zone   string  `yaml:"zone,omitempty"`
	Min    float64 `yaml:"min,omitempty"`
	Max    float64 `yaml:"max,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount    = "event_count"
	AssertDialZone      = "dial_zone"
	AssertMetricBetween = "metric_between"
	AssertProposalCount = "proposal_count"
)

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertEventCount:
		if a.EventType == "" {
			return fmt.Errorf("assertions[%d]: event_type is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertDialZone:
		if a.Metric == "" || a.Zone == "" {
			return fmt.Errorf("assertions[%d]: metric and zone are required for dial_zone", index)
		}
	case AssertMetricBetween:
		if a.Metric == "" {
			return fmt.Errorf("assertions[%d]: metric is required for metric_between", index)
		}
		if a.Max < a.Min {
			return fmt.Errorf("assertions[%d]: max must be >= min", index)
		}
	case AssertProposalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// Assert applies every assertion and returns all failures, not just the
// first.
func Assert(scenario *Scenario, result *Result) []error {
	var errs []error
	for i, a := range scenario.Assertions {
		if err := applyAssertion(&a, result); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
		}
	}
	return errs
}

func applyAssertion(a *Assertion, result *Result) error {
	switch a.Type {
	case AssertEventCount:
		got := 0
		for _, e := range result.Events {
			if e.Type != a.EventType {
				continue
			}
			if a.Domain != "" && e.Domain != a.Domain {
				continue
			}
			got++
		}
		if got != a.Count {
			return fmt.Errorf("event_count %s: want %d, got %d", a.EventType, a.Count, got)
		}

	case AssertDialZone:
		reading, ok := result.Dials[a.Metric]
		if !ok {
			return fmt.Errorf("dial_zone: no dial for metric %s", a.Metric)
		}
		if reading.Zone != metrics.Zone(a.Zone) {
			return fmt.Errorf("dial_zone %s: want %s, got %s (value %v)",
				a.Metric, a.Zone, reading.Zone, reading.Value)
		}

	case AssertMetricBetween:
		v, ok := result.Metrics[a.Metric]
		if !ok {
			return fmt.Errorf("metric_between: unknown metric %s", a.Metric)
		}
		if v < a.Min || v > a.Max {
			return fmt.Errorf("metric_between %s: want [%v,%v], got %v", a.Metric, a.Min, a.Max, v)
		}

	case AssertProposalCount:
		if got := len(result.Proposals); got != a.Count {
			return fmt.Errorf("proposal_count: want %d, got %d", a.Count, got)
		}
	}
	return nil
}
