package event

// Typed payloads for statically known event types. Keeping these as structs
// (rather than open maps) lets consumers type-switch instead of probing for
// optional keys.

// LoadSpikePayload accompanies LOAD_SPIKE events from the booking-load
// domain. Severity is in [0,1).
type LoadSpikePayload struct {
	Severity float64 `json:"severity"`
}

// RequestLatencyPayload accompanies REQUEST_LATENCY samples. Ms is the
// simulated request latency in milliseconds.
type RequestLatencyPayload struct {
	Ms float64 `json:"ms"`
}

// PaymentPayload accompanies PAYMENT_PROCESSED and PAYMENT_FAILED events.
// Reason is set only on failures.
type PaymentPayload struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason,omitempty"`
}

// TicketOpenedPayload accompanies TICKET_OPENED events from the
// support-queue domain.
type TicketOpenedPayload struct {
	Category string `json:"category"`
}

// TrustSamplePayload accompanies TRUST_SAMPLE events. Score is in [0,1].
type TrustSamplePayload struct {
	Score float64 `json:"score"`
}

// FaultPayload accompanies fault.injected events.
type FaultPayload struct {
	Domain string `json:"domain"`
	Kind   string `json:"kind"`
}

// ProposalCreatedPayload accompanies proposal.created events emitted when
// the proposal engine surfaces a candidate action.
type ProposalCreatedPayload struct {
	ProposalID string  `json:"proposalId"`
	Domain     string  `json:"domain"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// InterventionPayload accompanies intervention.applied events inside replay
// forks.
type InterventionPayload struct {
	ProposalID string `json:"proposalId,omitempty"`
	Domain     string `json:"domain"`
	Action     string `json:"action"`
}
