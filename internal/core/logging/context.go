package logging

import "context"

type contextKey string

const (
	fetchIDKey contextKey = "fetch_id"
	moduleKey  contextKey = "module"
)

// WithFetchID adds a fetch ID to the context.
func WithFetchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, fetchIDKey, id)
}

// WithModule adds the searched module to the context.
func WithModule(ctx context.Context, module string) context.Context {
	return context.WithValue(ctx, moduleKey, module)
}

// GetFetchID retrieves the fetch ID from the context.
// Returns empty string if not present.
func GetFetchID(ctx context.Context) string {
	if id, ok := ctx.Value(fetchIDKey).(string); ok {
		return id
	}
	return ""
}

// GetModule retrieves the module from the context.
// Returns empty string if not present.
func GetModule(ctx context.Context) string {
	if m, ok := ctx.Value(moduleKey).(string); ok {
		return m
	}
	return ""
}
