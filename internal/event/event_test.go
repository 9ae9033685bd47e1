package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeIDStable(t *testing.T) {
	payload := LoadSpikePayload{Severity: 0.42}
	a, err := ComputeID(7, 1, "booking-load", TypeLoadSpike, payload)
	require.NoError(t, err)
	b, err := ComputeID(7, 1, "booking-load", TypeLoadSpike, payload)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeIDSensitivity(t *testing.T) {
	base, err := ComputeID(7, 1, "booking-load", TypeLoadSpike, LoadSpikePayload{Severity: 0.42})
	require.NoError(t, err)

	otherSeed, err := ComputeID(8, 1, "booking-load", TypeLoadSpike, LoadSpikePayload{Severity: 0.42})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherSeed)

	otherTick, err := ComputeID(7, 2, "booking-load", TypeLoadSpike, LoadSpikePayload{Severity: 0.42})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherTick)

	otherPayload, err := ComputeID(7, 1, "booking-load", TypeLoadSpike, LoadSpikePayload{Severity: 0.43})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherPayload)
}

func TestNewAssignsID(t *testing.T) {
	e, err := New(7, 3, Spec{Domain: "payments", Type: TypePaymentFailed, Payload: PaymentPayload{Amount: 10, Reason: "card_declined"}})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, int64(3), e.Tick)
	assert.Equal(t, "payments", e.Domain)
}

func TestWrapEnvelope(t *testing.T) {
	e, err := New(7, 3, Spec{Domain: "payments", Type: TypePaymentOK, Payload: PaymentPayload{Amount: 25}})
	require.NoError(t, err)

	env := Wrap(7, 5, e)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Equal(t, uint32(7), env.Seed)
	assert.Equal(t, int64(5), env.GeneratedAtTick)
	assert.Equal(t, e.ID, env.Event.ID)
}
