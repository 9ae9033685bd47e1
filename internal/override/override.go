// Package override records human decisions that supersede a governance
// verdict. Requests validate hard against the decision they target; accepted
// records append to an immutable audit trail and are never updated or
// deleted.
package override

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookwright/steward/internal/canon"
	"github.com/bookwright/steward/internal/governance"
)

// Validation failures. Every rejection is one of these; an override is never
// partially applied.
var (
	ErrNoOverridesRequired  = errors.New("decision carries no override requirements")
	ErrEmptyJustification   = errors.New("justification must not be empty")
	ErrInsufficientRole     = errors.New("actor role does not satisfy any required override")
	ErrDecisionHashMismatch = errors.New("decision hash does not match the targeted decision")
	ErrProposalMismatch     = errors.New("proposal id does not match the targeted decision")
)

// Actor identifies the human submitting an override.
type Actor struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Request is a submitted override, bound to the exact decision it supersedes
// via DecisionHash.
type Request struct {
	ProposalID    string             `json:"proposalId"`
	DecisionHash  string             `json:"decisionHash"`
	VerdictAfter  governance.Verdict `json:"verdictAfter"`
	Actor         Actor              `json:"actor"`
	Justification string             `json:"justification"`
}

// Record is one accepted override. OverrideHash covers the semantic content
// only; Timestamp is excluded so identical overrides hash identically.
type Record struct {
	OverrideID    string             `json:"overrideId"`
	ProposalID    string             `json:"proposalId"`
	DecisionHash  string             `json:"decisionHash"`
	VerdictBefore governance.Verdict `json:"verdictBefore"`
	VerdictAfter  governance.Verdict `json:"verdictAfter"`
	Actor         Actor              `json:"actor"`
	Justification string             `json:"justification"`
	Timestamp     time.Time          `json:"timestamp"`
	OverrideHash  string             `json:"overrideHash"`
}

// Validate checks a request against the decision it targets. Order matters
// for error reporting: structural binding (hashes, IDs) is checked before
// authorization so a caller targeting the wrong decision learns that first.
func Validate(req Request, decision governance.Decision) error {
	if req.DecisionHash != decision.DecisionHash {
		return ErrDecisionHashMismatch
	}
	if req.ProposalID == "" || req.ProposalID != decision.ProposalID {
		return ErrProposalMismatch
	}
	if len(decision.RequiredOverrides) == 0 {
		return ErrNoOverridesRequired
	}
	if trimmedEmpty(req.Justification) {
		return ErrEmptyJustification
	}
	for _, required := range decision.RequiredOverrides {
		if req.Actor.Role == required.RoleRequired {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q", ErrInsufficientRole, req.Actor.Role)
}

// NewRecord builds the append-only record for a validated request.
func NewRecord(req Request, decision governance.Decision, now time.Time) (Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("override id: %w", err)
	}

	rec := Record{
		OverrideID:    id.String(),
		ProposalID:    req.ProposalID,
		DecisionHash:  req.DecisionHash,
		VerdictBefore: decision.Verdict,
		VerdictAfter:  req.VerdictAfter,
		Actor:         req.Actor,
		Justification: req.Justification,
		Timestamp:     now.UTC(),
	}

	hash, err := canon.Hash(canon.DomainOverride, map[string]any{
		"proposalId":    rec.ProposalID,
		"decisionHash":  rec.DecisionHash,
		"verdictBefore": rec.VerdictBefore,
		"verdictAfter":  rec.VerdictAfter,
		"actor":         rec.Actor,
		"justification": rec.Justification,
	})
	if err != nil {
		return Record{}, fmt.Errorf("override hash: %w", err)
	}
	rec.OverrideHash = hash
	return rec, nil
}

func trimmedEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
