// Package governance adjudicates whether a proposal may be promoted. Rules
// run as an ordered, side-effect-free chain; verdicts only ever escalate
// (allow < warn < block), and missing required context resolves to block
// rather than skipping a check.
package governance

import (
	"sort"

	"github.com/bookwright/steward/internal/metrics"
	"github.com/bookwright/steward/internal/proposal"
	"github.com/bookwright/steward/internal/replay"
)

// Verdict is the governance outcome for a proposal.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictWarn  Verdict = "warn"
	VerdictBlock Verdict = "block"
)

// severity ranks verdicts for escalation; higher never de-escalates.
func severity(v Verdict) int {
	switch v {
	case VerdictBlock:
		return 2
	case VerdictWarn:
		return 1
	default:
		return 0
	}
}

// Escalate returns the more severe of two verdicts.
func Escalate(a, b Verdict) Verdict {
	if severity(b) > severity(a) {
		return b
	}
	return a
}

// Reason explains one rule's verdict contribution.
type Reason struct {
	RuleID   string  `json:"ruleId"`
	Severity Verdict `json:"severity"`
	Message  string  `json:"message"`
}

// OverrideRequirement names a role that must sign off before promotion.
type OverrideRequirement struct {
	RoleRequired string `json:"roleRequired"`
	Reason       string `json:"reason"`
}

// Context is everything a rule may inspect. Absent optional inputs are nil;
// a rule whose required input is absent returns NoOpinion, never an error.
type Context struct {
	Proposal     *proposal.Proposal
	Tick         *int64
	Dials        metrics.Snapshot
	ReplayDeltas []replay.MetricDelta
}

// Contribution is one rule's opinion: a verdict, an explanatory reason,
// and optionally an override requirement.
type Contribution struct {
	Verdict  Verdict
	Message  string
	Override *OverrideRequirement
}

// Opinion is the sum of "no opinion" and a contribution. Rules return it
// instead of a nullable value so absence is a modeled case.
type Opinion struct {
	contribution *Contribution
}

// NoOpinion means the rule has nothing to contribute for this context.
func NoOpinion() Opinion {
	return Opinion{}
}

// Opine wraps a contribution.
func Opine(c Contribution) Opinion {
	return Opinion{contribution: &c}
}

// Get unwraps the opinion; ok is false for NoOpinion.
func (o Opinion) Get() (Contribution, bool) {
	if o.contribution == nil {
		return Contribution{}, false
	}
	return *o.contribution, true
}

// Rule is one link of the evaluation chain. Evaluate must be free of side
// effects and must not consult anything outside the given context.
type Rule struct {
	ID       string
	Evaluate func(Context) Opinion
}

// Decision is the auditable outcome of one evaluation. InputsHash excludes
// volatile fields; DecisionHash covers only semantic content (verdict,
// sorted reasons, sorted overrides), so two decisions with identical
// substance hash identically regardless of when they were computed.
type Decision struct {
	ProposalID        string                `json:"proposalId"`
	Domain            string                `json:"domain"`
	Action            string                `json:"action"`
	Verdict           Verdict               `json:"verdict"`
	Reasons           []Reason              `json:"reasons"`
	RequiredOverrides []OverrideRequirement `json:"requiredOverrides,omitempty"`
	EvaluatedAtTick   int64                 `json:"evaluatedAtTick"`
	InputsHash        string                `json:"inputsHash"`
	DecisionHash      string                `json:"decisionHash"`
}

// sortReasons orders by (severity desc, ruleId asc). The order is part of
// the decision's semantic content and therefore feeds DecisionHash.
func sortReasons(reasons []Reason) {
	sort.Slice(reasons, func(i, j int) bool {
		si, sj := severity(reasons[i].Severity), severity(reasons[j].Severity)
		if si != sj {
			return si > sj
		}
		return reasons[i].RuleID < reasons[j].RuleID
	})
}

// sortOverrides orders by (roleRequired, reason).
func sortOverrides(reqs []OverrideRequirement) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].RoleRequired != reqs[j].RoleRequired {
			return reqs[i].RoleRequired < reqs[j].RoleRequired
		}
		return reqs[i].Reason < reqs[j].Reason
	})
}
