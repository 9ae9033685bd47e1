package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwright/steward/internal/replay"
)

func TestReplayCommand(t *testing.T) {
	path := writeReplayRequest(t, `{
		"config": {"seed": 7, "domains": ["booking-load", "payments"]},
		"startTick": 1,
		"endTick": 5,
		"variants": [
			{
				"name": "throttled",
				"interventions": [
					{"tick": 2, "domain": "booking-load", "action": "throttle-bookings"}
				]
			}
		]
	}`)

	out, err := execute(t, "replay", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Baseline:")
	assert.Contains(t, out, `Variant "throttled"`)
	assert.Contains(t, out, "Hash: ")
}

func TestReplayCommandJSON(t *testing.T) {
	path := writeReplayRequest(t, `{
		"config": {"seed": 3, "domains": ["payments"]},
		"startTick": 1,
		"endTick": 3
	}`)

	out, err := execute(t, "replay", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   replay.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(1), resp.Data.StartTick)
	assert.Equal(t, int64(3), resp.Data.EndTick)
	assert.NotEmpty(t, resp.Data.Baseline.Events)
	assert.NotEmpty(t, resp.Data.Hash)
}

func TestReplayCommandHashStable(t *testing.T) {
	req := `{"config": {"seed": 9, "domains": ["payments"]}, "startTick": 1, "endTick": 4}`

	var hashes []string
	for i := 0; i < 2; i++ {
		out, err := execute(t, "replay", writeReplayRequest(t, req), "--format", "json")
		require.NoError(t, err)
		var resp struct {
			Data replay.Report `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		hashes = append(hashes, resp.Data.Hash)
	}
	assert.Equal(t, hashes[0], hashes[1])
}

func TestReplayCommandInvalidRequest(t *testing.T) {
	path := writeReplayRequest(t, `{"config": {"seed": 1, "domains": []}, "startTick": 1, "endTick": 2}`)
	_, err := execute(t, "replay", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayCommandMissingFile(t *testing.T) {
	_, err := execute(t, "replay", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func writeReplayRequest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
