// Package event defines the engine's event model: content-addressed events,
// the versioned envelope used for persistence and transport, and the bounded
// in-memory log.
package event

import (
	"fmt"

	"github.com/bookwright/steward/internal/canon"
)

// EnvelopeVersion is the wire version stamped on every envelope.
const EnvelopeVersion = "1"

// EngineVersion is the steward engine version.
const EngineVersion = "0.1.0"

// Well-known event types. Domain plugins emit the domain-specific types;
// the tick engine emits the structural ones.
const (
	TypeTickMarker   = "tick.marker"
	TypeFault        = "fault.injected"
	TypeProposal     = "proposal.created"
	TypeIntervention = "intervention.applied"

	TypeLoadSpike      = "LOAD_SPIKE"
	TypeRequestLatency = "REQUEST_LATENCY"
	TypePaymentOK      = "PAYMENT_PROCESSED"
	TypePaymentFailed  = "PAYMENT_FAILED"
	TypeTicketOpened   = "TICKET_OPENED"
	TypeTrustSample    = "TRUST_SAMPLE"
)

// Event is a single immutable occurrence in the simulated world.
//
// ID is a content hash of (seed, tick, domain, type, canonical payload), so
// re-deriving the same logical occurrence always yields the same ID.
//
// Payload holds a typed payload struct for event types the engine knows
// statically (see payload.go); events that arrive from outside the engine
// (shadow comparison input) fall back to an open map[string]any.
type Event struct {
	ID      string `json:"id"`
	Tick    int64  `json:"tick"`
	Domain  string `json:"domain"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Envelope wraps an Event for persistence and transmission. GeneratedAtTick
// may differ from Event.Tick only inside replay forks that re-stamp history.
type Envelope struct {
	Version         string `json:"version"`
	Seed            uint32 `json:"seed"`
	GeneratedAtTick int64  `json:"generatedAtTick"`
	Event           Event  `json:"event"`
}

// Spec describes an event a domain wants emitted, before identity
// assignment. The tick engine turns specs into events.
type Spec struct {
	Domain  string
	Type    string
	Payload any
}

// ComputeID derives the content-addressed event ID.
func ComputeID(seed uint32, tick int64, domain, typ string, payload any) (string, error) {
	id, err := canon.Hash(canon.DomainEvent, map[string]any{
		"seed":    seed,
		"tick":    tick,
		"domain":  domain,
		"type":    typ,
		"payload": payload,
	})
	if err != nil {
		return "", fmt.Errorf("event id: %w", err)
	}
	return id, nil
}

// New materializes a Spec into an Event at the given (seed, tick).
func New(seed uint32, tick int64, spec Spec) (Event, error) {
	id, err := ComputeID(seed, tick, spec.Domain, spec.Type, spec.Payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:      id,
		Tick:    tick,
		Domain:  spec.Domain,
		Type:    spec.Type,
		Payload: spec.Payload,
	}, nil
}

// Wrap builds the persistence envelope for an event.
func Wrap(seed uint32, generatedAtTick int64, e Event) Envelope {
	return Envelope{
		Version:         EnvelopeVersion,
		Seed:            seed,
		GeneratedAtTick: generatedAtTick,
		Event:           e,
	}
}
