package config_test

import (
	"testing"

	"github.com/ory/viper"
	"github.com/spf13/cobra"
	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/internal/config"
)

func TestBindEnvOverridesDefault(t *testing.T) {
	viper.Reset()
	t.Setenv("FORGEBUILD_DATA_DIR", "/tmp/forgebuild-custom")

	cmd := &cobra.Command{Use: "test"}
	assert.NilError(t, config.Bind(cmd))

	resolved := config.Resolved()
	assert.Equal(t, resolved.DataDir, "/tmp/forgebuild-custom")
}

func TestBindFlagOverridesEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("FORGEBUILD_NO_WORKERS", "true")

	cmd := &cobra.Command{Use: "test"}
	assert.NilError(t, config.Bind(cmd))
	assert.NilError(t, cmd.PersistentFlags().Set("no-workers", "false"))

	resolved := config.Resolved()
	assert.Equal(t, resolved.NoWorkers, false)
}
