package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts fetch_id and module from context and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if id := GetFetchID(ctx); id != "" {
		e.Str("fetch_id", id)
	}

	if module := GetModule(ctx); module != "" {
		e.Str("module", module)
	}
}
