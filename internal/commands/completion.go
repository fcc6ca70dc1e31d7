package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	coresearch "github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/data/history"
)

// TimeRangeCompleter suggests time range presets after --range and defers to
// flag completion otherwise.
func TimeRangeCompleter() cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if !completingFlag(cmd, "--range", "-r") {
			cli.DefaultCompleteWithFlags(ctx, cmd)
			return
		}
		w := cmd.Root().Writer
		for _, name := range coresearch.TimeRanges {
			_, _ = fmt.Fprintln(w, name)
		}
	}
}

// ModuleCompleter suggests the modules found in the search history after
// --module.
func ModuleCompleter(flags *Flags) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if !completingFlag(cmd, "--module", "-m") {
			cli.DefaultCompleteWithFlags(ctx, cmd)
			return
		}

		store, closeHistory, err := openHistory(ctx, flags.Config)
		defer closeHistory()
		if err != nil {
			return
		}
		entries, err := store.List(ctx, "", history.DefaultLimit)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		seen := make(map[string]bool)
		for _, e := range entries {
			if e.Module == "" || seen[e.Module] {
				continue
			}
			seen[e.Module] = true
			_, _ = fmt.Fprintln(w, e.Module)
		}
	}
}

// completingFlag reports whether the last typed argument is one of names.
func completingFlag(cmd *cli.Command, names ...string) bool {
	args := cmd.Args()
	if !args.Present() {
		return false
	}
	last := strings.TrimSpace(args.Slice()[args.Len()-1])
	for _, n := range names {
		if last == n {
			return true
		}
	}
	return false
}
