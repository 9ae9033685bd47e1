package sim

import (
	"fmt"
	"sort"

	"github.com/bookwright/steward/internal/canon"
	"github.com/bookwright/steward/internal/event"
)

// World is the mutable simulation state: logical time, the seeded RNG, and
// the bounded event log. It is owned by exactly one engine (or one replay
// fork) and is never shared by reference outside its owner.
type World struct {
	seed      uint32
	tick      int64
	rng       *canon.LCG
	log       *event.Log
	lastFault *event.Event
	lastEvent *event.Event
}

// NewWorld creates a world at tick 0 with a freshly seeded RNG.
func NewWorld(seed uint32, logCapacity int) *World {
	return &World{
		seed: seed,
		rng:  canon.NewLCG(seed),
		log:  event.NewLog(logCapacity),
	}
}

// NewForkWorld creates an isolated world for a replay fork: the RNG is
// re-seeded identically, the log is pre-loaded with the base-event prefix,
// and logical time resumes so the next Step lands on startTick.
func NewForkWorld(seed uint32, startTick int64, prefix []event.Event, logCapacity int) *World {
	w := NewWorld(seed, logCapacity)
	w.tick = startTick - 1
	for _, e := range prefix {
		w.log.Append(e)
	}
	return w
}

// Seed returns the world's seed.
func (w *World) Seed() uint32 { return w.seed }

// Tick returns the current logical time.
func (w *World) Tick() int64 { return w.tick }

// RNGState exposes the generator state for status reporting.
func (w *World) RNGState() uint32 { return w.rng.State() }

// Events returns a copy of the retained event log, oldest first.
func (w *World) Events() []event.Event { return w.log.Snapshot() }

// RecentEvents returns a copy of the newest n events.
func (w *World) RecentEvents(n int) []event.Event { return w.log.Recent(n) }

// EventsSinceTick returns a copy of events at or after fromTick.
func (w *World) EventsSinceTick(fromTick int64) []event.Event { return w.log.SinceTick(fromTick) }

// LastFault returns the most recent fault event, if any.
func (w *World) LastFault() *event.Event {
	if w.lastFault == nil {
		return nil
	}
	e := *w.lastFault
	return &e
}

// LastEvent returns the most recently emitted event, if any.
func (w *World) LastEvent() *event.Event {
	if w.lastEvent == nil {
		return nil
	}
	e := *w.lastEvent
	return &e
}

// StepConfig parameterizes one tick of the world.
type StepConfig struct {
	// Domains must already be resolved (deduplicated, sorted by name).
	Domains []Domain

	// DomainConfigs carries per-domain tuning, keyed by domain name.
	DomainConfigs map[string]map[string]float64

	// FailureProbabilities configures fault injection per domain. Domains
	// are visited in sorted-name order, one draw each; at most one fault is
	// emitted per tick.
	FailureProbabilities map[string]float64

	// Pre is emitted after the tick marker and before any domain runs.
	// Replay forks use it to apply interventions.
	Pre []event.Spec
}

// Step advances the world exactly one tick: marker, pre-specs, domains in
// sorted order, then fault injection. Returns the events emitted this tick,
// oldest first. Step is the ONLY mutation point for World.
func (w *World) Step(cfg StepConfig) ([]event.Event, error) {
	w.tick++

	var emitted []event.Event
	emit := func(spec event.Spec) error {
		e, err := event.New(w.seed, w.tick, spec)
		if err != nil {
			return err
		}
		w.log.Append(e)
		w.lastEvent = &e
		emitted = append(emitted, e)
		return nil
	}

	if err := emit(event.Spec{Domain: "engine", Type: event.TypeTickMarker}); err != nil {
		return nil, fmt.Errorf("tick %d: %w", w.tick, err)
	}

	for _, spec := range cfg.Pre {
		if err := emit(spec); err != nil {
			return nil, fmt.Errorf("tick %d: pre spec: %w", w.tick, err)
		}
	}

	for _, d := range cfg.Domains {
		tc := TickContext{
			Tick:   w.tick,
			Config: cfg.DomainConfigs[d.Name],
			Draw:   w.rng.Draw,
		}
		for _, spec := range d.Generate(tc) {
			if err := emit(spec); err != nil {
				return nil, fmt.Errorf("tick %d: domain %s: %w", w.tick, d.Name, err)
			}
		}
	}

	if err := w.injectFault(cfg.FailureProbabilities, emit); err != nil {
		return nil, fmt.Errorf("tick %d: %w", w.tick, err)
	}

	return emitted, nil
}

// AppendExtra emits additional events at the current tick, outside the
// domain pass. The engine uses it for proposal.created events.
func (w *World) AppendExtra(specs []event.Spec) ([]event.Event, error) {
	var out []event.Event
	for _, spec := range specs {
		e, err := event.New(w.seed, w.tick, spec)
		if err != nil {
			return nil, err
		}
		w.log.Append(e)
		w.lastEvent = &e
		out = append(out, e)
	}
	return out, nil
}

// injectFault visits configured domains in sorted-name order, drawing once
// per domain. The first triggered fault is emitted and the pass stops; at
// most one fault per tick.
func (w *World) injectFault(probs map[string]float64, emit func(event.Spec) error) error {
	if len(probs) == 0 {
		return nil
	}
	domains := make([]string, 0, len(probs))
	for d := range probs {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	for _, d := range domains {
		if w.rng.Draw() >= probs[d] {
			continue
		}
		spec := event.Spec{
			Domain:  d,
			Type:    event.TypeFault,
			Payload: event.FaultPayload{Domain: d, Kind: "degradation"},
		}
		if err := emit(spec); err != nil {
			return err
		}
		w.lastFault = w.lastEvent
		return nil
	}
	return nil
}
