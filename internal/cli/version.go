package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCmd prints build-time version metadata, mirroring the
// teacher's cmd/func version command.
func NewVersionCmd(cfg RootCommandConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the forgebuild version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s)\n", cfg.Name, cfg.Version, cfg.Hash, cfg.Date)
			return err
		},
	}
}
