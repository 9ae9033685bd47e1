package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bookwright/steward/internal/governance"
	"github.com/bookwright/steward/internal/override"
	"github.com/bookwright/steward/internal/replay"
)

// ErrNotFound is returned when a lookup matches no stored artifact.
var ErrNotFound = errors.New("not found")

// DecisionByHash fetches one decision by its semantic hash.
func (s *Store) DecisionByHash(ctx context.Context, decisionHash string) (governance.Decision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT decision_hash, proposal_id, domain, action, verdict, reasons, required_overrides, evaluated_at_tick, inputs_hash
		FROM decisions WHERE decision_hash = ?
	`, decisionHash)
	return scanDecision(row)
}

// DecisionsForProposal returns every recorded decision for a proposal,
// oldest tick first.
func (s *Store) DecisionsForProposal(ctx context.Context, proposalID string) ([]governance.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT decision_hash, proposal_id, domain, action, verdict, reasons, required_overrides, evaluated_at_tick, inputs_hash
		FROM decisions WHERE proposal_id = ? ORDER BY evaluated_at_tick, decision_hash
	`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}
	defer rows.Close()

	var out []governance.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}
	return out, nil
}

// OverridesForProposal returns the audit trail for a proposal in append
// order.
func (s *Store) OverridesForProposal(ctx context.Context, proposalID string) ([]override.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT override_id, override_hash, proposal_id, decision_hash, verdict_before, verdict_after, actor_user_id, actor_role, justification, recorded_at
		FROM overrides WHERE proposal_id = ? ORDER BY recorded_at, override_id
	`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	defer rows.Close()

	var out []override.Record
	for rows.Next() {
		var rec override.Record
		var before, after, recordedAt string
		if err := rows.Scan(
			&rec.OverrideID, &rec.OverrideHash, &rec.ProposalID, &rec.DecisionHash,
			&before, &after, &rec.Actor.UserID, &rec.Actor.Role,
			&rec.Justification, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("read overrides: %w", err)
		}
		rec.VerdictBefore = governance.Verdict(before)
		rec.VerdictAfter = governance.Verdict(after)
		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("read overrides: parse timestamp: %w", err)
		}
		rec.Timestamp = ts
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return out, nil
}

// ReplayReportByRun fetches a persisted replay report by run ID.
func (s *Store) ReplayReportByRun(ctx context.Context, runID string) (*replay.Report, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM replay_reports WHERE run_id = ?`, runID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("replay run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read replay report: %w", err)
	}

	var report replay.Report
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("read replay report: decode: %w", err)
	}
	return &report, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (governance.Decision, error) {
	var d governance.Decision
	var verdict, reasons, required string
	err := row.Scan(
		&d.DecisionHash, &d.ProposalID, &d.Domain, &d.Action,
		&verdict, &reasons, &required, &d.EvaluatedAtTick, &d.InputsHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return governance.Decision{}, fmt.Errorf("decision: %w", ErrNotFound)
	}
	if err != nil {
		return governance.Decision{}, fmt.Errorf("read decision: %w", err)
	}

	d.Verdict = governance.Verdict(verdict)
	if err := json.Unmarshal([]byte(reasons), &d.Reasons); err != nil {
		return governance.Decision{}, fmt.Errorf("read decision: decode reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(required), &d.RequiredOverrides); err != nil {
		return governance.Decision{}, fmt.Errorf("read decision: decode overrides: %w", err)
	}
	return d, nil
}
