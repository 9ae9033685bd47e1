package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bookwright/steward/internal/canon"
	"github.com/bookwright/steward/internal/governance"
	"github.com/bookwright/steward/internal/override"
	"github.com/bookwright/steward/internal/replay"
)

// WriteDecision records a promotion decision. Keyed on decision_hash with
// ON CONFLICT DO NOTHING: re-recording the same semantic decision is a
// no-op, which keeps repeated evaluations idempotent.
func (s *Store) WriteDecision(ctx context.Context, d governance.Decision) error {
	reasons, err := canon.MarshalCanonical(d.Reasons)
	if err != nil {
		return fmt.Errorf("write decision: %w", err)
	}
	required, err := canon.MarshalCanonical(d.RequiredOverrides)
	if err != nil {
		return fmt.Errorf("write decision: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions
		(decision_hash, proposal_id, domain, action, verdict, reasons, required_overrides, evaluated_at_tick, inputs_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(decision_hash) DO NOTHING
	`,
		d.DecisionHash,
		d.ProposalID,
		d.Domain,
		d.Action,
		string(d.Verdict),
		string(reasons),
		string(required),
		d.EvaluatedAtTick,
		d.InputsHash,
	)
	if err != nil {
		return fmt.Errorf("write decision: %w", err)
	}
	return nil
}

// WriteOverride appends an accepted override record. Overrides are
// append-only; the primary key is the record's UUID and duplicates are
// silently ignored.
func (s *Store) WriteOverride(ctx context.Context, rec override.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO overrides
		(override_id, override_hash, proposal_id, decision_hash, verdict_before, verdict_after, actor_user_id, actor_role, justification, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(override_id) DO NOTHING
	`,
		rec.OverrideID,
		rec.OverrideHash,
		rec.ProposalID,
		rec.DecisionHash,
		string(rec.VerdictBefore),
		string(rec.VerdictAfter),
		rec.Actor.UserID,
		rec.Actor.Role,
		rec.Justification,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write override: %w", err)
	}
	return nil
}

// WriteReplayReport persists a replay report as canonical JSON, keyed on
// the report's deterministic hash.
func (s *Store) WriteReplayReport(ctx context.Context, r *replay.Report) error {
	body, err := canon.MarshalCanonical(r)
	if err != nil {
		return fmt.Errorf("write replay report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO replay_reports (report_hash, run_id, start_tick, end_tick, report)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(report_hash) DO NOTHING
	`,
		r.Hash,
		r.RunID,
		r.StartTick,
		r.EndTick,
		string(body),
	)
	if err != nil {
		return fmt.Errorf("write replay report: %w", err)
	}
	return nil
}

// AppendOverride satisfies the override log's sink interface.
func (s *Store) AppendOverride(rec override.Record) error {
	return s.WriteOverride(context.Background(), rec)
}
