package proposal

import (
	"fmt"

	"github.com/bookwright/steward/internal/event"
)

// Rule-draft thresholds. The rules are deterministic pattern matches over
// the event window; confidences derive from observed counts, never from
// randomness.
const (
	loadSpikeThreshold      = 2
	paymentFailureThreshold = 2
	ticketThreshold         = 3
)

// ruleDrafts generates drafts from fixed patterns in the window.
func ruleDrafts(window []event.Event) []Draft {
	var (
		spikes   []string
		failures []string
		tickets  []string
	)
	for _, e := range window {
		switch e.Type {
		case event.TypeLoadSpike:
			spikes = append(spikes, e.ID)
		case event.TypePaymentFailed:
			failures = append(failures, e.ID)
		case event.TypeTicketOpened:
			tickets = append(tickets, e.ID)
		}
	}

	var drafts []Draft
	if len(spikes) >= loadSpikeThreshold {
		drafts = append(drafts, Draft{
			Domain:           "booking-load",
			Action:           "throttle-bookings",
			Description:      fmt.Sprintf("%d load spikes in window; throttle new booking requests", len(spikes)),
			Confidence:       countConfidence(len(spikes), loadSpikeThreshold),
			EvidenceEventIDs: spikes,
			Source:           SourceRule,
		})
	}
	if len(failures) >= paymentFailureThreshold {
		drafts = append(drafts, Draft{
			Domain:           "payments",
			Action:           "pause-payment-retries",
			Description:      fmt.Sprintf("%d payment failures in window; pause automatic retries", len(failures)),
			Confidence:       countConfidence(len(failures), paymentFailureThreshold),
			EvidenceEventIDs: failures,
			Source:           SourceRule,
		})
	}
	if len(tickets) >= ticketThreshold {
		drafts = append(drafts, Draft{
			Domain:           "support-queue",
			Action:           "scale-support-capacity",
			Description:      fmt.Sprintf("%d tickets opened in window; add support capacity", len(tickets)),
			Confidence:       countConfidence(len(tickets), ticketThreshold),
			EvidenceEventIDs: tickets,
			Source:           SourceRule,
		})
	}
	return drafts
}

// countConfidence maps how far a count exceeds its threshold into a
// confidence: 0.6 at the threshold, +0.05 per extra occurrence, capped at
// 0.95.
func countConfidence(count, threshold int) float64 {
	c := 0.6 + 0.05*float64(count-threshold)
	if c > 0.95 {
		c = 0.95
	}
	return c
}
