package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwright/steward/internal/governance"
	"github.com/bookwright/steward/internal/override"
	"github.com/bookwright/steward/internal/replay"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDecision() governance.Decision {
	return governance.Decision{
		ProposalID: "prop-1",
		Domain:     "booking-load",
		Action:     "throttle-bookings",
		Verdict:    governance.VerdictWarn,
		Reasons: []governance.Reason{
			{RuleID: "warn-on-yellow-dial", Severity: governance.VerdictWarn, Message: "yellow dial on support.open_tickets"},
		},
		RequiredOverrides: []governance.OverrideRequirement{
			{RoleRequired: "admin", Reason: "privileged action"},
		},
		EvaluatedAtTick: 12,
		InputsHash:      "sha256:inputs",
		DecisionHash:    "sha256:decision",
	}
}

func TestWriteAndReadDecision(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := sampleDecision()

	require.NoError(t, s.WriteDecision(ctx, want))

	got, err := s.DecisionByHash(ctx, want.DecisionHash)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	list, err := s.DecisionsForProposal(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, want, list[0])
}

func TestWriteDecisionIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	d := sampleDecision()

	require.NoError(t, s.WriteDecision(ctx, d))
	require.NoError(t, s.WriteDecision(ctx, d))

	list, err := s.DecisionsForProposal(ctx, d.ProposalID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDecisionNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.DecisionByHash(context.Background(), "sha256:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteAndReadOverrides(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := override.Record{
		OverrideID:    "ovr-1",
		OverrideHash:  "sha256:ovr-1",
		ProposalID:    "prop-1",
		DecisionHash:  "sha256:decision",
		VerdictBefore: governance.VerdictWarn,
		VerdictAfter:  governance.VerdictAllow,
		Actor:         override.Actor{UserID: "u-1", Role: "admin"},
		Justification: "verified on staging",
		Timestamp:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	second := first
	second.OverrideID = "ovr-2"
	second.OverrideHash = "sha256:ovr-2"
	second.Timestamp = first.Timestamp.Add(time.Hour)

	require.NoError(t, s.WriteOverride(ctx, first))
	require.NoError(t, s.WriteOverride(ctx, second))
	require.NoError(t, s.WriteOverride(ctx, second)) // duplicate ignored

	trail, err := s.OverridesForProposal(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, first, trail[0])
	assert.Equal(t, second, trail[1])

	empty, err := s.OverridesForProposal(ctx, "prop-404")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWriteAndReadReplayReport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := &replay.Report{
		RunID:     "run-1",
		StartTick: 1,
		EndTick:   5,
		Baseline:  replay.Variant{Name: replay.BaselineName},
		Hash:      "sha256:report",
	}
	require.NoError(t, s.WriteReplayReport(ctx, report))

	got, err := s.ReplayReportByRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, report.Hash, got.Hash)
	assert.Equal(t, report.StartTick, got.StartTick)
	assert.Equal(t, replay.BaselineName, got.Baseline.Name)

	_, err = s.ReplayReportByRun(ctx, "run-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSatisfiesOverrideSink(t *testing.T) {
	var _ override.Sink = openTestStore(t)
}
