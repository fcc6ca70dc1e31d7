package commands

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestConfigValidate_Valid(t *testing.T) {
	res := runApp(t, newTestFlags(t), "config", "validate")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Configuration is valid")
}

func TestConfigValidate_JSON(t *testing.T) {
	flags := newTestFlags(t)
	flags.Config.TUI.Theme = "solarized"
	flags.Config.Source.File.Paths = append(flags.Config.Source.File.Paths, "logs/[.ndjson")

	res := runApp(t, flags, "config", "validate", "--format", "json")

	var exit cli.ExitCoder
	require.ErrorAs(t, res.err, &exit)
	assert.Equal(t, 1, exit.ExitCode())

	var out struct {
		Valid  bool              `json:"valid"`
		Errors []validationIssue `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.False(t, out.Valid)

	fields := make([]string, 0, len(out.Errors))
	for _, e := range out.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"source.file.paths[1]", "tui.theme"}, fields)
}

func TestConfigValidate_Text(t *testing.T) {
	flags := newTestFlags(t)
	flags.Config.Search.AutoRefresh = -1

	res := runApp(t, flags, "config", "validate")
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "search.auto_refresh: must not be negative")
	assert.Contains(t, res.stdout, "1 error(s) found")
}

func TestCollectIssues(t *testing.T) {
	assert.Nil(t, collectIssues(nil))

	plain := collectIssues(errors.New("data directory cannot be empty"))
	assert.Equal(t, []validationIssue{{Message: "data directory cannot be empty"}}, plain)

	fields := collectIssues(criterio.NewFieldErrors("tui.theme", errors.New("unknown theme")))
	assert.Equal(t, []validationIssue{{Field: "tui.theme", Message: "unknown theme"}}, fields)
}
