package harness

import (
	"context"
	"fmt"

	"github.com/bookwright/steward/internal/event"
	"github.com/bookwright/steward/internal/metrics"
	"github.com/bookwright/steward/internal/proposal"
	"github.com/bookwright/steward/internal/sim"
)

// Result is the outcome of one scenario run.
type Result struct {
	Status    sim.Status
	Events    []event.Event
	Metrics   map[string]float64
	Dials     metrics.Snapshot
	Proposals []proposal.Proposal
}

// openGate always permits; the harness runs in-process, never against a
// deployment environment.
type openGate struct{}

func (openGate) Check() error { return nil }

// Run executes a scenario from a cold start and captures the outcome.
func Run(scenario *Scenario) (*Result, error) {
	var generator sim.ProposalGenerator
	if scenario.Proposals {
		generator = proposal.NewEngine(proposal.Options{}, nil)
	}

	engine := sim.NewEngine(openGate{}, generator, nil)
	err := engine.Start(sim.Config{
		Seed:                 scenario.Seed,
		Domains:              scenario.Domains,
		DomainConfigs:        scenario.DomainConfigs,
		FailureProbabilities: scenario.FailureProbabilities,
		ProposalsEnabled:     scenario.Proposals,
	})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: start: %w", scenario.Name, err)
	}

	ctx := context.Background()
	for i := 0; i < scenario.Ticks; i++ {
		if _, err := engine.Tick(ctx); err != nil {
			return nil, fmt.Errorf("scenario %s: tick %d: %w", scenario.Name, i+1, err)
		}
	}

	registry := metrics.MustDefaultRegistry()
	board, err := metrics.NewBoard(registry, metrics.DefaultDials())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	events := engine.Events(0)
	values := metrics.Extract(registry, events)

	return &Result{
		Status:    engine.Status(),
		Events:    events,
		Metrics:   values,
		Dials:     board.Snapshot(values),
		Proposals: engine.Proposals(),
	}, nil
}

// RunAndAssert runs the scenario and applies all of its assertions.
func RunAndAssert(scenario *Scenario) (*Result, error) {
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if errs := Assert(scenario, result); len(errs) > 0 {
		return result, fmt.Errorf("scenario %s: %d assertion failure(s), first: %w",
			scenario.Name, len(errs), errs[0])
	}
	return result, nil
}
