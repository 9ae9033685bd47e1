package governance

import (
	"fmt"
	"log/slog"

	"github.com/bookwright/steward/internal/canon"
)

// ruleMissingContext names the synthetic reason emitted when required
// evaluation inputs are absent.
const ruleMissingContext = "missing-context"

// Engine evaluates proposals through an ordered rule chain.
type Engine struct {
	rules  []Rule
	logger *slog.Logger
}

// NewEngine creates an engine over the given chain; nil rules means
// DefaultRules.
func NewEngine(rules []Rule, logger *slog.Logger) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rules: rules, logger: logger}
}

// Evaluate adjudicates a proposal against the context.
//
// Fail-closed invariants: a missing proposal, tick, or dial snapshot
// resolves immediately to block with a dedicated reason, without running
// the chain. A rule that panics is converted into a block reason naming
// the rule; misbehavior never silently passes.
func (e *Engine) Evaluate(ctx Context) (Decision, error) {
	if missing := missingContext(ctx); missing != "" {
		return e.finalize(ctx, VerdictBlock, []Reason{{
			RuleID:   ruleMissingContext,
			Severity: VerdictBlock,
			Message:  fmt.Sprintf("required evaluation input absent: %s", missing),
		}}, nil)
	}

	verdict := VerdictAllow
	var reasons []Reason
	var overrides []OverrideRequirement

	for _, rule := range e.rules {
		contribution, ok := e.evaluateRule(rule, ctx)
		if !ok {
			continue
		}

		verdict = Escalate(verdict, contribution.Verdict)
		if contribution.Message != "" {
			reasons = append(reasons, Reason{
				RuleID:   rule.ID,
				Severity: contribution.Verdict,
				Message:  contribution.Message,
			})
		}
		if contribution.Override != nil {
			overrides = append(overrides, *contribution.Override)
		}
	}

	return e.finalize(ctx, verdict, reasons, overrides)
}

// evaluateRule runs one rule with panic capture. A panicking rule yields a
// block contribution naming it.
func (e *Engine) evaluateRule(rule Rule, ctx Context) (contribution Contribution, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("governance rule panicked", "rule", rule.ID, "panic", r)
			contribution = Contribution{
				Verdict: VerdictBlock,
				Message: fmt.Sprintf("rule %s failed during evaluation: %v", rule.ID, r),
			}
			ok = true
		}
	}()

	opinion := rule.Evaluate(ctx)
	return opinion.Get()
}

// finalize sorts the semantic content, computes both hashes, and builds
// the decision record.
func (e *Engine) finalize(ctx Context, verdict Verdict, reasons []Reason, overrides []OverrideRequirement) (Decision, error) {
	sortReasons(reasons)
	sortOverrides(overrides)

	d := Decision{
		Verdict:           verdict,
		Reasons:           reasons,
		RequiredOverrides: overrides,
	}
	if ctx.Proposal != nil {
		d.ProposalID = ctx.Proposal.ID
		d.Domain = ctx.Proposal.Domain
		d.Action = ctx.Proposal.Action
	}
	if ctx.Tick != nil {
		d.EvaluatedAtTick = *ctx.Tick
	}

	inputsHash, err := canon.Hash(canon.DomainDecisionInputs, map[string]any{
		"proposalId":   d.ProposalID,
		"tick":         d.EvaluatedAtTick,
		"dials":        ctx.Dials,
		"replayDeltas": ctx.ReplayDeltas,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("governance: inputs hash: %w", err)
	}
	d.InputsHash = inputsHash

	decisionHash, err := canon.Hash(canon.DomainDecision, map[string]any{
		"verdict":           d.Verdict,
		"reasons":           d.Reasons,
		"requiredOverrides": d.RequiredOverrides,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("governance: decision hash: %w", err)
	}
	d.DecisionHash = decisionHash

	return d, nil
}

// missingContext names the first absent required input, or "" when the
// context is complete.
func missingContext(ctx Context) string {
	switch {
	case ctx.Proposal == nil:
		return "proposal"
	case ctx.Tick == nil:
		return "tick"
	case len(ctx.Dials) == 0:
		return "dials"
	}
	return ""
}
