package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaultPack(t *testing.T) {
	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestValidateBadPack(t *testing.T) {
	src := `
pack: {
	name: "bad"
	metrics: {
		"m.one": {domain: "d", unit: "count", direction: "lower-is-better"}
	}
	dials: {
		"m.two": {
			green:  {lo: 0, hi: 1}
			yellow: {lo: 1, hi: 2}
			red:    {lo: 2, hi: 3}
		}
	}
}
`
	path := writePack(t, src)
	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E204")
	assert.Contains(t, out, "E205")
}

func TestValidateMissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func writePack(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}
