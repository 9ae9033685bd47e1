package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8870", cfg.ListenAddr)
	assert.Equal(t, "steward.db", cfg.StorePath)
	assert.Equal(t, 5000, cfg.RingCapacity)
	assert.Equal(t, 2*time.Second, cfg.ProposalSourceTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STEWARD_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("STEWARD_ENVIRONMENT", "staging")
	t.Setenv("STEWARD_ALLOWED_ENVIRONMENTS", "staging,sandbox")
	t.Setenv("STEWARD_RING_CAPACITY", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, []string{"staging", "sandbox"}, cfg.AllowedEnvironments)
	assert.Equal(t, 100, cfg.RingCapacity)
	assert.NoError(t, cfg.EnvGate().Check())
}

func TestLoadRejectsNonPositiveRing(t *testing.T) {
	t.Setenv("STEWARD_RING_CAPACITY", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestGateCheck(t *testing.T) {
	cases := []struct {
		name    string
		gate    Gate
		wantErr bool
	}{
		{"allowed", Gate{Current: "staging", Allowed: []string{"staging", "sandbox"}}, false},
		{"not listed", Gate{Current: "production", Allowed: []string{"staging"}}, true},
		{"empty allow-list refuses", Gate{Current: "staging"}, true},
		{"empty current refused", Gate{Allowed: []string{"staging"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.gate.Check()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrEnvironmentForbidden)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
