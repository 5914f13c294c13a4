package envutil

import (
	"context"
)

type envContextKey string

// WithEnvOverride returns a context in which reads of key see value instead
// of the process environment.
func WithEnvOverride(ctx context.Context, key string, value string) context.Context {
	return context.WithValue(ctx, envContextKey(key), value)
}

// WithEnvOverrides applies WithEnvOverride for every entry in vars.
func WithEnvOverrides(ctx context.Context, vars map[string]string) context.Context {
	for k, v := range vars {
		ctx = WithEnvOverride(ctx, k, v)
	}

	return ctx
}

func getEnvOverride(ctx context.Context, key string) (string, bool) {
	if ctx == nil {
		return "", false
	}

	val, ok := ctx.Value(envContextKey(key)).(string)

	return val, ok
}
