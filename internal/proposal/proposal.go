// Package proposal turns raw event history into validated, content-addressed
// corrective-action proposals. Drafts come from deterministic pattern rules
// and, optionally, from an untrusted external source; both pass through the
// same validation pipeline.
package proposal

import (
	"fmt"
	"sort"

	"github.com/bookwright/steward/internal/canon"
)

// Source tags where a proposal draft originated.
type Source string

const (
	SourceRule     Source = "rule"
	SourceExternal Source = "external"
)

// Draft is an unvalidated proposal candidate.
type Draft struct {
	Domain           string   `json:"domain"`
	Action           string   `json:"action"`
	Description      string   `json:"description"`
	Confidence       float64  `json:"confidence"`
	EvidenceEventIDs []string `json:"evidenceEventIds,omitempty"`
	Source           Source   `json:"source"`
}

// Proposal is a validated candidate corrective action. ID is content-hashed
// from (seed, tick, domain, action, confidence, sorted evidence ids):
// identical inputs always yield the identical proposal, making
// re-generation idempotent.
type Proposal struct {
	ID               string   `json:"id"`
	Tick             int64    `json:"tick"`
	Domain           string   `json:"domain"`
	Action           string   `json:"action"`
	Description      string   `json:"description"`
	Confidence       float64  `json:"confidence"`
	EvidenceEventIDs []string `json:"evidenceEventIds,omitempty"`
	Source           Source   `json:"source"`
}

// ComputeID derives the content-addressed proposal ID. Evidence order is
// irrelevant: IDs hash over the sorted set.
func ComputeID(seed uint32, tick int64, domain, action string, confidence float64, evidence []string) (string, error) {
	sortedEvidence := make([]string, len(evidence))
	copy(sortedEvidence, evidence)
	sort.Strings(sortedEvidence)

	id, err := canon.Hash(canon.DomainProposal, map[string]any{
		"seed":       seed,
		"tick":       tick,
		"domain":     domain,
		"action":     action,
		"confidence": confidence,
		"evidence":   sortedEvidence,
	})
	if err != nil {
		return "", fmt.Errorf("proposal id: %w", err)
	}
	return id, nil
}
