package proposal

import (
	"context"
	"log/slog"
	"sort"

	"github.com/bookwright/steward/internal/event"
)

// Window bounds for proposal generation: the recent window is the smaller
// of the last WindowTicks ticks and the last WindowEvents events.
const (
	WindowTicks  = 10
	WindowEvents = 200
)

// Options tunes the proposal engine.
type Options struct {
	// MinConfidence drops drafts below it after normalization.
	MinConfidence float64
	// MaxPerTick caps how many proposals one tick may surface.
	MaxPerTick int
	// External is the optional untrusted draft source; nil disables it.
	External ExternalSource
}

// Engine merges rule-based and external drafts, validates and scores them,
// deduplicates, caps, and assigns content-addressed IDs.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// NewEngine creates a proposal engine. Zero-value options get sane
// defaults: MinConfidence 0.5, MaxPerTick 5.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = 0.5
	}
	if opts.MaxPerTick <= 0 {
		opts.MaxPerTick = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{opts: opts, logger: logger}
}

// Generate implements the per-tick proposal pipeline. A failing external
// source never aborts rule-based generation; partial failure is absorbed.
func (e *Engine) Generate(ctx context.Context, tick int64, seed uint32, events []event.Event, activeDomains []string) []Proposal {
	window := recentWindow(events, tick)

	known := make(map[string]bool, len(window))
	for _, ev := range events {
		known[ev.ID] = true
	}
	active := make(map[string]bool, len(activeDomains))
	for _, d := range activeDomains {
		active[d] = true
	}

	drafts := ruleDrafts(window)
	drafts = append(drafts, e.externalDrafts(ctx, window, activeDomains)...)

	var valid []Proposal
	for _, d := range drafts {
		p, ok := e.validate(d, tick, seed, active, known)
		if !ok {
			continue
		}
		valid = append(valid, p)
	}

	valid = dedupe(valid)
	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Domain != valid[j].Domain {
			return valid[i].Domain < valid[j].Domain
		}
		if valid[i].Action != valid[j].Action {
			return valid[i].Action < valid[j].Action
		}
		return valid[i].Confidence > valid[j].Confidence
	})

	if len(valid) > e.opts.MaxPerTick {
		valid = valid[:e.opts.MaxPerTick]
	}
	return valid
}

// externalDrafts fetches and schema-checks drafts from the external source.
// Any failure degrades to zero external drafts.
func (e *Engine) externalDrafts(ctx context.Context, window []event.Event, activeDomains []string) []Draft {
	if e.opts.External == nil {
		return nil
	}
	raws, err := e.opts.External.Drafts(ctx, window, activeDomains)
	if err != nil {
		e.logger.Warn("external proposal source failed, continuing rule-only", "err", err)
		return nil
	}

	var out []Draft
	for i, raw := range raws {
		d, err := validateExternalDraft(raw)
		if err != nil {
			e.logger.Warn("dropping invalid external draft", "index", i, "err", err)
			continue
		}
		out = append(out, d)
	}
	return out
}

// validate applies the draft constraints and materializes a Proposal.
// Unknown evidence IDs are silently dropped from the list, not fatal.
func (e *Engine) validate(d Draft, tick int64, seed uint32, active, known map[string]bool) (Proposal, bool) {
	if !active[d.Domain] {
		return Proposal{}, false
	}
	if trimmedEmpty(d.Action) || trimmedEmpty(d.Description) {
		return Proposal{}, false
	}

	confidence, err := normalizeConfidence(d.Confidence)
	if err != nil {
		return Proposal{}, false
	}
	if confidence < e.opts.MinConfidence {
		return Proposal{}, false
	}

	var evidence []string
	for _, id := range d.EvidenceEventIDs {
		if known[id] {
			evidence = append(evidence, id)
		}
	}
	sort.Strings(evidence)

	id, err := ComputeID(seed, tick, d.Domain, d.Action, confidence, evidence)
	if err != nil {
		e.logger.Warn("proposal id computation failed", "domain", d.Domain, "action", d.Action, "err", err)
		return Proposal{}, false
	}

	return Proposal{
		ID:               id,
		Tick:             tick,
		Domain:           d.Domain,
		Action:           d.Action,
		Description:      d.Description,
		Confidence:       confidence,
		EvidenceEventIDs: evidence,
		Source:           d.Source,
	}, true
}

// dedupe keeps the highest-confidence proposal per (domain, action).
func dedupe(props []Proposal) []Proposal {
	type key struct{ domain, action string }
	best := make(map[key]Proposal, len(props))
	var order []key
	for _, p := range props {
		k := key{p.Domain, p.Action}
		existing, seen := best[k]
		if !seen {
			best[k] = p
			order = append(order, k)
			continue
		}
		if p.Confidence > existing.Confidence {
			best[k] = p
		}
	}

	out := make([]Proposal, 0, len(best))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

// recentWindow bounds the events considered for drafting: events within the
// last WindowTicks ticks, capped at the most recent WindowEvents.
func recentWindow(events []event.Event, tick int64) []event.Event {
	fromTick := tick - WindowTicks + 1
	if fromTick < 0 {
		fromTick = 0
	}

	var windowed []event.Event
	for _, e := range events {
		if e.Tick >= fromTick {
			windowed = append(windowed, e)
		}
	}
	if len(windowed) > WindowEvents {
		windowed = windowed[len(windowed)-WindowEvents:]
	}
	return windowed
}
