// Package config binds the engine's environment and flag surface using
// ory/viper, exactly as the teacher's cmd/root.go binds FUNC_-prefixed
// environment variables onto cobra flags.
package config

import (
	"github.com/ory/viper"
	"github.com/spf13/cobra"
)

// EnvPrefix is the environment-variable prefix viper.AutomaticEnv binds
// under, replacing the teacher's "func" and spec.md's "UI5" prefixes.
const EnvPrefix = "FORGEBUILD"

// Config is the engine's resolved, flag/env-bound runtime configuration.
type Config struct {
	DataDir   string // FORGEBUILD_DATA_DIR: overrides the cache root (spec §6)
	NoWorkers bool   // FORGEBUILD_NO_WORKERS: disables task worker pools (spec §5)
}

// Bind registers --data-dir and --no-workers on cmd's persistent flags and
// wires viper to read FORGEBUILD_DATA_DIR/FORGEBUILD_NO_WORKERS, flags
// always taking precedence over the environment per viper.BindPFlag's
// usual precedence rules.
func Bind(cmd *cobra.Command) error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	cmd.PersistentFlags().String("data-dir", viper.GetString("data_dir"), "cache data directory (env FORGEBUILD_DATA_DIR)")
	if err := viper.BindPFlag("data_dir", cmd.PersistentFlags().Lookup("data-dir")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("no-workers", viper.GetBool("no_workers"), "disable task worker pools (env FORGEBUILD_NO_WORKERS)")
	if err := viper.BindPFlag("no_workers", cmd.PersistentFlags().Lookup("no-workers")); err != nil {
		return err
	}

	return nil
}

// Resolved reads the bound flags/environment back into a Config.
func Resolved() Config {
	return Config{
		DataDir:   viper.GetString("data_dir"),
		NoWorkers: viper.GetBool("no_workers"),
	}
}
