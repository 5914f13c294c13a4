package startup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/amp-labs/chamber/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestConfigureEnvironment(t *testing.T) { //nolint:paralleltest // mutates the process environment
	base := writeFile(t, "chamber.env", "CHAMBER_TEST_ADDR=10.0.0.1\nCHAMBER_TEST_PORT=3141\n")
	local := writeFile(t, "local.yaml", "env:\n  CHAMBER_TEST_ADDR: 10.0.0.2\n")

	t.Setenv("CHAMBER_TEST_PORT", "8080")
	t.Setenv("CHAMBER_TEST_ADDR", "")
	require.NoError(t, os.Unsetenv("CHAMBER_TEST_ADDR"))

	ctx := envutil.WithEnvOverride(t.Context(), "ENV_FILE", base+", ,"+local+",")

	require.NoError(t, ConfigureEnvironment(ctx))

	assert.Equal(t, "10.0.0.2", os.Getenv("CHAMBER_TEST_ADDR"), "later files win")
	assert.Equal(t, "8080", os.Getenv("CHAMBER_TEST_PORT"), "existing variables are kept")

	require.NoError(t, ConfigureEnvironmentFromFiles([]string{base}, WithAllowOverride(true)))
	assert.Equal(t, "3141", os.Getenv("CHAMBER_TEST_PORT"))
	assert.Equal(t, "10.0.0.1", os.Getenv("CHAMBER_TEST_ADDR"))
}

func TestConfigureEnvironmentWithoutFiles(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), "ENV_FILE", " , ")
	require.NoError(t, ConfigureEnvironment(ctx))
	require.NoError(t, ConfigureEnvironmentFromFiles(nil))
}

func TestConfigureEnvironmentBadFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "chamber.ini", "X=1\n")

	err := ConfigureEnvironmentFromFiles([]string{path})
	require.ErrorIs(t, err, envutil.ErrUnknownFileType)
}
