// Package startup prepares the process environment before configuration is
// read. Its main job is loading env files named by ENV_FILE, which is handy
// for local development and for the chamber's systemd unit.
package startup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amp-labs/chamber/envutil"
)

// Option is a functional option for configuring environment loading behavior.
type Option func(*options)

type options struct {
	// allowOverride lets file values replace variables that are already set.
	allowOverride bool
}

// WithAllowOverride configures whether loaded environment variables can override
// existing environment variables in the process.
//
// When allowOverride is true, variables from files will replace existing environment
// variables. When false (default), existing variables are preserved.
func WithAllowOverride(allowOverride bool) Option {
	return func(o *options) {
		o.allowOverride = allowOverride
	}
}

// ConfigureEnvironment loads the files listed in ENV_FILE (comma separated,
// e.g. ENV_FILE="/etc/chamber/chamber.env,/etc/chamber/local.yaml") into the
// process environment. A missing or empty ENV_FILE is not an error.
//
// Supported formats are .env, .json and .yaml; see envutil.LoadEnvFile.
func ConfigureEnvironment(ctx context.Context, opts ...Option) error {
	envFiles := envutil.StringList(ctx, "ENV_FILE").ValueOrElse(nil)

	return ConfigureEnvironmentFromFiles(envFiles, opts...)
}

// ConfigureEnvironmentFromFiles loads envFiles in order (later files win) and
// sets the result in the process environment. Existing variables take
// precedence unless WithAllowOverride(true) is given.
func ConfigureEnvironmentFromFiles(envFiles []string, opts ...Option) error {
	cfg := getOptions(opts)

	if len(envFiles) == 0 {
		return nil
	}

	vars, err := envutil.LoadEnvFiles(envFiles...)
	if err != nil {
		return fmt.Errorf("loading environment files: %w", err)
	}

	set, err := envutil.Apply(vars, cfg.allowOverride)
	if err != nil {
		return fmt.Errorf("applying environment files: %w", err)
	}

	slog.Debug("Loaded environment files", "files", envFiles, "loaded", len(vars), "set", len(set))

	return nil
}

func getOptions(opts []Option) *options {
	cfg := &options{}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return cfg
}
