// Package envutil reads typed configuration values from the process
// environment. Every reader is context-aware: values placed on the context
// with WithEnvOverride take precedence over the real environment, which lets
// tests run in parallel without touching os.Environ.
package envutil

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// get returns a Reader for the given environment variable key.
func get(ctx context.Context, key string) Reader[string] {
	if val, ok := getEnvOverride(ctx, key); ok {
		return Reader[string]{
			key:     key,
			present: true,
			value:   val,
		}
	}

	val, ok := os.LookupEnv(key)

	return Reader[string]{
		key:     key,
		present: ok,
		value:   val,
	}
}

// NewReader returns a Reader for the given raw data.
func NewReader[T any](key string, present bool, err error, value T) Reader[T] {
	return Reader[T]{
		key:     key,
		present: present,
		value:   value,
		err:     err,
	}
}

func apply[T any](rdr Reader[T], opts []Option[T]) Reader[T] {
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// String returns a Reader for the given environment variable key.
func String(ctx context.Context, key string, opts ...Option[string]) Reader[string] {
	return apply(get(ctx, key), opts)
}

func Bool(ctx context.Context, key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(Map(get(ctx, key), trimString), parseBool), opts)
}

func Int[I Intish](ctx context.Context, key string, opts ...Option[I]) Reader[I] {
	return apply(Map(Map(Map(get(ctx, key), trimString), parseInt64), castNumeric[int64, I]), opts)
}

func Uint[U Uintish](ctx context.Context, key string, opts ...Option[U]) Reader[U] {
	return apply(Map(Map(Map(get(ctx, key), trimString), parseUint64), castNumeric[uint64, U]), opts)
}

func Float64(ctx context.Context, key string, opts ...Option[float64]) Reader[float64] {
	return apply(Map(Map(get(ctx, key), trimString), parseFloat64), opts)
}

func Duration(ctx context.Context, key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(Map(get(ctx, key), trimString), time.ParseDuration), opts)
}

// Port returns a Reader for a TCP port number.
func Port(ctx context.Context, key string, opts ...Option[uint16]) Reader[uint16] {
	return apply(Map(Map(get(ctx, key), trimString), parsePort), opts)
}

// SlogLevel returns a Reader for the given environment variable key.
func SlogLevel(ctx context.Context, key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	return apply(Map(Map(get(ctx, key), trimString), func(s string) (slog.Level, error) {
		return parseSlogLevel(strings.ToLower(s))
	}), opts)
}

// StringList returns a Reader that splits the value on commas, dropping
// empty elements.
func StringList(ctx context.Context, key string, opts ...Option[[]string]) Reader[[]string] {
	return apply(Map(get(ctx, key), func(s string) ([]string, error) {
		var out []string

		for part := range strings.SplitSeq(s, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}

		return out, nil
	}), opts)
}
