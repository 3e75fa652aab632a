// Package cli assembles the forgebuild command-line front-end: a thin
// cobra tree over pkg/orchestrator, wiring viper-bound configuration
// (internal/config) and the CLI's default task registry (out-of-scope
// collaborators per spec §1, stood in here so the binary is runnable).
package cli

import (
	"github.com/spf13/cobra"

	"github.com/forgebuild/engine/internal/config"
)

// RootCommandConfig carries build-time version metadata, mirroring the
// teacher's cmd.RootCommandConfig.
type RootCommandConfig struct {
	Name    string
	Date    string
	Version string
	Hash    string
}

// NewRootCmd builds the root command tree: build, serve, version.
func NewRootCmd(cfg RootCommandConfig) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:           cfg.Name,
		Short:         "Incremental build engine for multi-package web framework projects",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	if err := config.Bind(root); err != nil {
		return nil, err
	}

	root.AddCommand(NewBuildCmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewVersionCmd(cfg))

	return root, nil
}
