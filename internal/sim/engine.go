package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bookwright/steward/internal/event"
	"github.com/bookwright/steward/internal/proposal"
)

// State is the engine's lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

var (
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNotRunning     = errors.New("engine not running")
)

// EnvGate is the environment allow-list check. The engine refuses to start
// when the gate rejects: fail closed, not fail open.
type EnvGate interface {
	Check() error
}

// ProposalGenerator produces proposals after the domain pass of a tick.
// Implementations absorb their own partial failures; a degraded generator
// returns fewer proposals, never an error that would abort the tick.
type ProposalGenerator interface {
	Generate(ctx context.Context, tick int64, seed uint32, window []event.Event, activeDomains []string) []proposal.Proposal
}

// Config parameterizes a simulation run.
type Config struct {
	Seed                 uint32                        `json:"seed"`
	Domains              []string                      `json:"domains"`
	DomainConfigs        map[string]map[string]float64 `json:"domainConfigs,omitempty"`
	FailureProbabilities map[string]float64            `json:"failureProbabilities,omitempty"`
	ProposalsEnabled     bool                          `json:"proposalsEnabled"`
	RingCapacity         int                           `json:"ringCapacity,omitempty"`
}

// Validate rejects structurally invalid configs before any state changes.
func (c Config) Validate() error {
	if len(c.Domains) == 0 {
		return fmt.Errorf("config: at least one domain required")
	}
	if _, err := Resolve(c.Domains); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for d, p := range c.FailureProbabilities {
		if p < 0 || p > 1 {
			return fmt.Errorf("config: failure probability for %s out of [0,1]: %v", d, p)
		}
	}
	if c.RingCapacity < 0 {
		return fmt.Errorf("config: ring capacity must be non-negative")
	}
	return nil
}

// TickResult reports what one tick produced.
type TickResult struct {
	Tick      int64               `json:"tick"`
	Events    []event.Event       `json:"events"`
	Proposals []proposal.Proposal `json:"proposals,omitempty"`
}

// Status is a read-only projection of engine state.
type Status struct {
	State      State        `json:"state"`
	Tick       int64        `json:"tick"`
	Seed       uint32       `json:"seed"`
	RNGState   uint32       `json:"rngState"`
	EventCount int          `json:"eventCount"`
	LastFault  *event.Event `json:"lastFault,omitempty"`
}

// Engine is the start/stop state machine advancing one world tick at a
// time. All mutation happens under a single mutex: concurrent Tick calls
// serialize, and World is never reachable by reference from outside.
type Engine struct {
	mu sync.Mutex

	gate      EnvGate
	generator ProposalGenerator
	logger    *slog.Logger

	state     State
	cfg       Config
	domains   []Domain
	world     *World
	proposals []proposal.Proposal // from the most recent tick
}

// NewEngine creates a stopped engine. generator may be nil when proposal
// generation is disabled.
func NewEngine(gate EnvGate, generator ProposalGenerator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		gate:      gate,
		generator: generator,
		logger:    logger,
		state:     StateStopped,
	}
}

// Start validates config, checks the environment gate, and creates a fresh
// world. Fails if already running.
func (e *Engine) Start(cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		return ErrAlreadyRunning
	}
	if err := e.gate.Check(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	domains, err := Resolve(cfg.Domains)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.domains = domains
	e.world = NewWorld(cfg.Seed, cfg.RingCapacity)
	e.proposals = nil
	e.state = StateRunning

	e.logger.Info("engine started",
		"seed", cfg.Seed,
		"domains", cfg.Domains,
		"proposals", cfg.ProposalsEnabled)
	return nil
}

// Tick advances the world by one step. Serialized: concurrent calls queue
// on the engine mutex.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return TickResult{}, ErrNotRunning
	}

	emitted, err := e.world.Step(StepConfig{
		Domains:              e.domains,
		DomainConfigs:        e.cfg.DomainConfigs,
		FailureProbabilities: e.cfg.FailureProbabilities,
	})
	if err != nil {
		return TickResult{}, err
	}

	result := TickResult{Tick: e.world.Tick(), Events: emitted}

	if e.cfg.ProposalsEnabled && e.generator != nil {
		props := e.generator.Generate(ctx, e.world.Tick(), e.cfg.Seed,
			e.world.Events(), e.cfg.Domains)
		e.proposals = props
		result.Proposals = props

		specs := make([]event.Spec, 0, len(props))
		for _, p := range props {
			specs = append(specs, event.Spec{
				Domain: p.Domain,
				Type:   event.TypeProposal,
				Payload: event.ProposalCreatedPayload{
					ProposalID: p.ID,
					Domain:     p.Domain,
					Action:     p.Action,
					Confidence: p.Confidence,
				},
			})
		}
		extra, err := e.world.AppendExtra(specs)
		if err != nil {
			// Degraded, not fatal: the tick stands without proposal events.
			e.logger.Warn("proposal event emission failed", "err", err)
		} else {
			result.Events = append(result.Events, extra...)
		}
	}

	return result, nil
}

// Stop halts ticking and preserves the terminal world for inspection.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return ErrNotRunning
	}
	e.state = StateStopped
	e.logger.Info("engine stopped", "tick", e.world.Tick())
	return nil
}

// Status returns a read-only projection of the engine. Safe to poll.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{State: e.state}
	if e.world != nil {
		s.Tick = e.world.Tick()
		s.Seed = e.world.Seed()
		s.RNGState = e.world.RNGState()
		s.EventCount = len(e.world.Events())
		s.LastFault = e.world.LastFault()
	}
	return s
}

// Events returns a copy of the newest limit events (all if limit <= 0).
func (e *Engine) Events(limit int) []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.world == nil {
		return nil
	}
	if limit <= 0 {
		return e.world.Events()
	}
	return e.world.RecentEvents(limit)
}

// Proposals returns the proposals generated by the most recent tick.
func (e *Engine) Proposals() []proposal.Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]proposal.Proposal, len(e.proposals))
	copy(out, e.proposals)
	return out
}

// Seed returns the running config's seed (0 when never started).
func (e *Engine) Seed() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.world == nil {
		return 0
	}
	return e.world.Seed()
}
