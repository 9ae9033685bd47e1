package proposal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwright/steward/internal/event"
)

var activeDomains = []string{"booking-load", "payments", "support-queue", "trust-signal"}

func spikeEvents(t *testing.T, n int) []event.Event {
	t.Helper()
	out := make([]event.Event, 0, n)
	for i := 0; i < n; i++ {
		e, err := event.New(7, int64(i+1), event.Spec{
			Domain:  "booking-load",
			Type:    event.TypeLoadSpike,
			Payload: event.LoadSpikePayload{Severity: float64(i) / 10},
		})
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

type stubSource struct {
	drafts []json.RawMessage
	err    error
}

func (s *stubSource) Drafts(_ context.Context, _ []event.Event, _ []string) ([]json.RawMessage, error) {
	return s.drafts, s.err
}

func TestGenerateRuleProposalFromLoadSpikes(t *testing.T) {
	e := NewEngine(Options{}, nil)
	events := spikeEvents(t, 3)

	props := e.Generate(context.Background(), 3, 7, events, activeDomains)
	require.Len(t, props, 1)
	p := props[0]
	assert.Equal(t, "booking-load", p.Domain)
	assert.Equal(t, "throttle-bookings", p.Action)
	assert.Equal(t, SourceRule, p.Source)
	assert.InDelta(t, 0.65, p.Confidence, 1e-9)
	assert.Len(t, p.EvidenceEventIDs, 3)
}

func TestGenerateBelowThresholdNoProposal(t *testing.T) {
	e := NewEngine(Options{}, nil)
	props := e.Generate(context.Background(), 1, 7, spikeEvents(t, 1), activeDomains)
	assert.Empty(t, props)
}

func TestGenerateIdempotentIDs(t *testing.T) {
	e := NewEngine(Options{}, nil)
	events := spikeEvents(t, 3)

	first := e.Generate(context.Background(), 3, 7, events, activeDomains)
	second := e.Generate(context.Background(), 3, 7, events, activeDomains)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestComputeIDEvidenceOrderIrrelevant(t *testing.T) {
	a, err := ComputeID(7, 1, "payments", "pause-payment-retries", 0.7, []string{"e1", "e2"})
	require.NoError(t, err)
	b, err := ComputeID(7, 1, "payments", "pause-payment-retries", 0.7, []string{"e2", "e1"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	changed, err := ComputeID(7, 1, "payments", "pause-payment-retries", 0.71, []string{"e1", "e2"})
	require.NoError(t, err)
	assert.NotEqual(t, a, changed)
}

func TestGenerateExternalSourceFailureDegradesToRules(t *testing.T) {
	e := NewEngine(Options{External: &stubSource{err: errors.New("timeout")}}, nil)
	props := e.Generate(context.Background(), 3, 7, spikeEvents(t, 3), activeDomains)
	require.Len(t, props, 1)
	assert.Equal(t, SourceRule, props[0].Source)
}

func TestGenerateExternalDraftValidated(t *testing.T) {
	good := json.RawMessage(`{"domain":"payments","action":"pause-payment-retries","description":"from external","confidence":85}`)
	missingAction := json.RawMessage(`{"domain":"payments","description":"x","confidence":0.9}`)
	unknownDomain := json.RawMessage(`{"domain":"warehouse","action":"a","description":"d","confidence":0.9}`)
	badConfidence := json.RawMessage(`{"domain":"payments","action":"b","description":"d","confidence":250}`)

	e := NewEngine(Options{External: &stubSource{
		drafts: []json.RawMessage{good, missingAction, unknownDomain, badConfidence},
	}}, nil)

	props := e.Generate(context.Background(), 1, 7, nil, activeDomains)
	require.Len(t, props, 1)
	assert.Equal(t, SourceExternal, props[0].Source)
	// 85 on a 0-100 scale normalizes to 0.85.
	assert.InDelta(t, 0.85, props[0].Confidence, 1e-9)
}

func TestGenerateUnknownEvidenceSilentlyDropped(t *testing.T) {
	events := spikeEvents(t, 2)
	raw := fmt.Sprintf(`{"domain":"booking-load","action":"add-capacity","description":"scale","confidence":0.9,"evidenceEventIds":[%q,"not-a-real-id"]}`, events[0].ID)

	e := NewEngine(Options{External: &stubSource{drafts: []json.RawMessage{json.RawMessage(raw)}}}, nil)
	props := e.Generate(context.Background(), 2, 7, events, activeDomains)

	var external *Proposal
	for i := range props {
		if props[i].Source == SourceExternal {
			external = &props[i]
		}
	}
	require.NotNil(t, external)
	assert.Equal(t, []string{events[0].ID}, external.EvidenceEventIDs)
}

func TestGenerateDedupeKeepsHighestConfidence(t *testing.T) {
	low := json.RawMessage(`{"domain":"payments","action":"pause-payment-retries","description":"low","confidence":0.6}`)
	high := json.RawMessage(`{"domain":"payments","action":"pause-payment-retries","description":"high","confidence":0.9}`)

	e := NewEngine(Options{External: &stubSource{drafts: []json.RawMessage{low, high}}}, nil)
	props := e.Generate(context.Background(), 1, 7, nil, activeDomains)
	require.Len(t, props, 1)
	assert.InDelta(t, 0.9, props[0].Confidence, 1e-9)
}

func TestGenerateMinConfidenceFilter(t *testing.T) {
	weak := json.RawMessage(`{"domain":"payments","action":"x","description":"d","confidence":0.3}`)
	e := NewEngine(Options{MinConfidence: 0.5, External: &stubSource{drafts: []json.RawMessage{weak}}}, nil)
	assert.Empty(t, e.Generate(context.Background(), 1, 7, nil, activeDomains))
}

func TestGenerateCapAndSortOrder(t *testing.T) {
	var raws []json.RawMessage
	for i := 0; i < 6; i++ {
		raws = append(raws, json.RawMessage(fmt.Sprintf(
			`{"domain":"payments","action":"action-%d","description":"d","confidence":0.9}`, i)))
	}
	e := NewEngine(Options{MaxPerTick: 3, External: &stubSource{drafts: raws}}, nil)
	props := e.Generate(context.Background(), 1, 7, nil, activeDomains)

	require.Len(t, props, 3)
	assert.Equal(t, "action-0", props[0].Action)
	assert.Equal(t, "action-1", props[1].Action)
	assert.Equal(t, "action-2", props[2].Action)
}

func TestRecentWindowBounds(t *testing.T) {
	var events []event.Event
	for tick := int64(1); tick <= 20; tick++ {
		e, err := event.New(7, tick, event.Spec{Domain: "engine", Type: event.TypeTickMarker})
		require.NoError(t, err)
		events = append(events, e)
	}

	window := recentWindow(events, 20)
	// Ticks 11..20 inclusive.
	require.Len(t, window, 10)
	assert.Equal(t, int64(11), window[0].Tick)
}

func TestNormalizeConfidence(t *testing.T) {
	cases := []struct {
		in      float64
		want    float64
		wantErr bool
	}{
		{0.5, 0.5, false},
		{1, 1, false},
		{85, 0.85, false},
		{100, 1, false},
		{-0.1, 0, true},
		{100.1, 0, true},
	}
	for _, tc := range cases {
		got, err := normalizeConfidence(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %v", tc.in)
			continue
		}
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-9, "input %v", tc.in)
	}
}
