package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/loupe/internal/core/doctor"
)

type doctorOutput struct {
	Healthy bool            `json:"healthy"`
	Summary summaryJSON     `json:"summary"`
	Checks  []doctor.Result `json:"checks"`
}

func TestDoctor_Healthy(t *testing.T) {
	res := runApp(t, newTestFlags(t), "doctor", "--format", "json")
	require.NoError(t, res.err)

	var out doctorOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.True(t, out.Healthy)
	assert.Zero(t, out.Summary.Failed)

	names := make([]string, 0, len(out.Checks))
	for _, c := range out.Checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Configuration", "Storage", "Source"}, names)
}

func TestDoctor_FailureExits(t *testing.T) {
	flags := newTestFlags(t)
	flags.Config.TUI.Theme = "solarized"

	empty := filepath.Join(t.TempDir(), "none")
	require.NoError(t, os.MkdirAll(empty, 0o755))
	flags.Config.Source.File.Paths = []string{filepath.Join(empty, "*.ndjson")}

	res := runApp(t, flags, "doctor")

	var exit cli.ExitCoder
	require.ErrorAs(t, res.err, &exit)
	assert.Equal(t, 1, exit.ExitCode())
	assert.Contains(t, res.stdout, "Loupe Doctor")
	assert.Contains(t, res.stdout, "tui.theme")
	assert.Contains(t, res.stdout, "no files match")
	assert.Contains(t, res.stdout, "1 warnings")
	assert.Contains(t, res.stdout, "1 failed")
}
