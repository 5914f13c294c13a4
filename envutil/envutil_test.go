package envutil_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amp-labs/chamber/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRequired = errors.New("required")

func TestString(t *testing.T) {
	t.Parallel()

	t.Run("override", func(t *testing.T) {
		t.Parallel()

		ctx := envutil.WithEnvOverride(t.Context(), "TEST_STRING", "hello")

		value, err := envutil.String(ctx, "TEST_STRING").Value()
		require.NoError(t, err)
		assert.Equal(t, "hello", value)
	})

	t.Run("missing value", func(t *testing.T) {
		t.Parallel()

		reader := envutil.String(t.Context(), "TEST_STRING_MISSING")
		_, err := reader.Value()
		require.ErrorIs(t, err, envutil.ErrEnvVarMissing)
		assert.False(t, reader.HasValue())
	})

	t.Run("with default", func(t *testing.T) {
		t.Parallel()

		value, err := envutil.String(t.Context(), "TEST_STRING_MISSING", envutil.Default("default")).Value()
		require.NoError(t, err)
		assert.Equal(t, "default", value)
	})

	t.Run("if missing", func(t *testing.T) {
		t.Parallel()

		_, err := envutil.String(t.Context(), "TEST_STRING_MISSING", envutil.IfMissing[string](errRequired)).Value()
		require.ErrorIs(t, err, errRequired)
	})

	t.Run("non empty", func(t *testing.T) {
		t.Parallel()

		ctx := envutil.WithEnvOverride(t.Context(), "TEST_STRING", "  ")

		_, err := envutil.String(ctx, "TEST_STRING", envutil.NonEmpty()).Value()
		require.ErrorIs(t, err, envutil.ErrOutOfRange)
	})
}

func TestProcessEnvironment(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	t.Setenv("TEST_ENVUTIL_PROCESS", "from-env")

	value, err := envutil.String(t.Context(), "TEST_ENVUTIL_PROCESS").Value()
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	ctx := envutil.WithEnvOverride(t.Context(), "TEST_ENVUTIL_PROCESS", "from-ctx")
	assert.Equal(t, "from-ctx", envutil.String(ctx, "TEST_ENVUTIL_PROCESS").ValueOrElse(""))
}

func TestTypedReaders(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverrides(t.Context(), map[string]string{
		"BOOL":     "true",
		"INT":      " 42 ",
		"UINT":     "7",
		"FLOAT":    "6.93131703213524",
		"DURATION": "1m30s",
		"PORT":     "3141",
		"BAD_PORT": "70000",
		"LEVEL":    "WARN",
		"LIST":     "a.env, ,b.yaml",
	})

	assert.True(t, envutil.Bool(ctx, "BOOL").ValueOrElse(false))
	assert.Equal(t, 42, envutil.Int[int](ctx, "INT").ValueOrElse(0))
	assert.Equal(t, uint8(7), envutil.Uint[uint8](ctx, "UINT").ValueOrElse(0))
	assert.InDelta(t, 6.93131703213524, envutil.Float64(ctx, "FLOAT").ValueOrElse(0), 1e-12)
	assert.Equal(t, 90*time.Second, envutil.Duration(ctx, "DURATION").ValueOrElse(0))
	assert.Equal(t, uint16(3141), envutil.Port(ctx, "PORT").ValueOrElse(0))
	assert.Equal(t, slog.LevelWarn, envutil.SlogLevel(ctx, "LEVEL").ValueOrElse(slog.LevelInfo))
	assert.Equal(t, []string{"a.env", "b.yaml"}, envutil.StringList(ctx, "LIST").ValueOrElse(nil))

	_, err := envutil.Port(ctx, "BAD_PORT").Value()
	require.ErrorIs(t, err, envutil.ErrBadEnvVar)
	require.ErrorIs(t, err, envutil.ErrBadPort)
}

func TestBetweenAndPositive(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverrides(t.Context(), map[string]string{
		"PCT":  "101",
		"WAIT": "0s",
	})

	_, err := envutil.Float64(ctx, "PCT", envutil.Between(0.0, 100.0)).Value()
	require.ErrorIs(t, err, envutil.ErrOutOfRange)

	_, err = envutil.Duration(ctx, "WAIT", envutil.Positive[time.Duration]()).Value()
	require.ErrorIs(t, err, envutil.ErrOutOfRange)

	nan := envutil.WithEnvOverride(t.Context(), "PCT", "NaN")

	_, err = envutil.Float64(nan, "PCT", envutil.Between(0.0, 100.0)).Value()
	require.ErrorIs(t, err, envutil.ErrOutOfRange, "NaN is outside every range")

	_, err = envutil.Float64(nan, "PCT", envutil.Positive[float64]()).Value()
	require.ErrorIs(t, err, envutil.ErrOutOfRange)

	// Defaults are validated too.
	_, err = envutil.Float64(t.Context(), "PCT_MISSING", envutil.Default(50.0), envutil.Between(0.0, 100.0)).Value()
	require.NoError(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	dotenv := filepath.Join(dir, "chamber.env")
	require.NoError(t, os.WriteFile(dotenv, []byte("# comment\nSERVER_IP=10.0.0.5\nRH_LOW_PERCENT=75\n"), 0o600))

	yml := filepath.Join(dir, "chamber.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("env:\n  RH_LOW_PERCENT: \"70\"\n  FAN_PIN: \"21\"\n"), 0o600))

	js := filepath.Join(dir, "chamber.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"env":{"HUM_PIN":"27"}}`), 0o600))

	vars, err := envutil.LoadEnvFiles(dotenv, yml, js)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"SERVER_IP":      "10.0.0.5",
		"RH_LOW_PERCENT": "70",
		"FAN_PIN":        "21",
		"HUM_PIN":        "27",
	}, vars)

	_, err = envutil.LoadEnvFile(filepath.Join(dir, "chamber.toml"))
	require.ErrorIs(t, err, envutil.ErrUnknownFileType)
}

func TestApply(t *testing.T) { //nolint:paralleltest // mutates the process environment
	t.Setenv("TEST_ENVUTIL_APPLY_KEEP", "original")

	set, err := envutil.Apply(map[string]string{
		"TEST_ENVUTIL_APPLY_KEEP": "replaced",
	}, false)
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.Equal(t, "original", os.Getenv("TEST_ENVUTIL_APPLY_KEEP"))

	set, err = envutil.Apply(map[string]string{
		"TEST_ENVUTIL_APPLY_KEEP": "replaced",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"TEST_ENVUTIL_APPLY_KEEP"}, set)
	assert.Equal(t, "replaced", os.Getenv("TEST_ENVUTIL_APPLY_KEEP"))
}
