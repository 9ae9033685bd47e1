package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/bookwright/steward/internal/canon"
)

// TraceSnapshot is the structural event trace pinned by golden files:
// (tick, domain, type) per event, in emission order. Payload values and
// content hashes are covered by unit tests; the golden layer pins the
// shape and ordering of the deterministic stream.
type TraceSnapshot struct {
	Scenario string
	Seed     uint32
	Ticks    int
	Trace    []TraceLine
}

// TraceLine is one event's structural identity.
type TraceLine struct {
	Tick   int64
	Domain string
	Type   string
}

func (s *TraceSnapshot) canonical() ([]byte, error) {
	trace := make([]any, len(s.Trace))
	for i, line := range s.Trace {
		trace[i] = map[string]any{
			"tick":   line.Tick,
			"domain": line.Domain,
			"type":   line.Type,
		}
	}
	return canon.MarshalCanonical(map[string]any{
		"scenario": s.Scenario,
		"seed":     s.Seed,
		"ticks":    s.Ticks,
		"trace":    trace,
	})
}

// RunWithGolden executes a scenario, applies its assertions, and compares
// the structural trace against testdata/golden/{name}.golden. Regenerate
// with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := RunAndAssert(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		Scenario: scenario.Name,
		Seed:     scenario.Seed,
		Ticks:    scenario.Ticks,
	}
	for _, e := range result.Events {
		snapshot.Trace = append(snapshot.Trace, TraceLine{
			Tick:   e.Tick,
			Domain: e.Domain,
			Type:   e.Type,
		})
	}

	traceJSON, err := snapshot.canonical()
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return result, nil
}
