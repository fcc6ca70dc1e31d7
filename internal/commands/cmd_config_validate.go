package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/loupe/internal/core/styles"
	"github.com/colonyops/loupe/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "loupe config validate [options]",
				Description: "Validates the configuration file, checking the source settings, glob patterns, durations, theme and paths.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

// validationIssue is one failed check.
type validationIssue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(_ context.Context, c *cli.Command) error {
	issues := collectIssues(cmd.flags.Config.ValidateDeep(cmd.flags.ConfigPath))
	out := c.Root().Writer

	if cmd.format == "json" {
		if err := iojson.WriteWith(out, errWriter(c), struct {
			Valid  bool              `json:"valid"`
			Errors []validationIssue `json:"errors,omitempty"`
		}{
			Valid:  len(issues) == 0,
			Errors: issues,
		}); err != nil {
			return err
		}
	} else {
		writeIssues(out, issues)
	}

	if len(issues) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func collectIssues(err error) []validationIssue {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []validationIssue{{Message: err.Error()}}
	}
	issues := make([]validationIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, validationIssue{Field: fe.Field, Message: fe.Err.Error()})
	}
	return issues
}

func writeIssues(out io.Writer, issues []validationIssue) {
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(out, styles.TextSuccessStyle.Render("✔ Configuration is valid"))
		return
	}
	for _, is := range issues {
		label := is.Message
		if is.Field != "" {
			label = is.Field + ": " + is.Message
		}
		_, _ = fmt.Fprintln(out, styles.TextErrorStyle.Render("✘ "+label))
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, styles.TextErrorStyle.Render(fmt.Sprintf("%d error(s) found", len(issues))))
}
