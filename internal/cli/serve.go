package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/forgebuild/engine/internal/config"
	"github.com/forgebuild/engine/pkg/buildlog"
	"github.com/forgebuild/engine/pkg/events"
	"github.com/forgebuild/engine/pkg/metrics"
	"github.com/forgebuild/engine/pkg/orchestrator"
	"github.com/forgebuild/engine/pkg/progress"
	"github.com/forgebuild/engine/pkg/project"
	"github.com/forgebuild/engine/pkg/stage"
)

// NewServeCmd is the forgebuild serve subcommand: a long-lived watch-mode
// server, mirroring the teacher's func run's "watch and rebuild" loop but
// over this engine's project graph rather than a single function source
// tree.
func NewServeCmd() *cobra.Command {
	var (
		listenAddr          string
		selfContained       bool
		outputStyle         string
		createBuildManifest bool
	)

	cmd := &cobra.Command{
		Use:   "serve [project-dir]",
		Short: "Watch a project's sources and rebuild incrementally on change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			p, err := LoadProject(dir)
			if err != nil {
				return err
			}

			cfg := config.Resolved()
			log := buildlog.New(slog.LevelInfo)
			bus := events.New()
			m := metrics.New()

			ch, unsub := bus.Subscribe()
			defer unsub()
			reporter := progress.NewConsoleReporter(cmd.OutOrStdout())
			go reporter.Run(ch)

			o := &orchestrator.Orchestrator{
				Projects:    map[string]*project.Project{p.Name: p},
				Registry:    DefaultRegistry(),
				Bus:         bus,
				Metrics:     m,
				Log:         log,
				Persistence: stage.NewPersistence(cfg.DataDir),
			}

			gc := orchestrator.GraphConfig{
				ListenAddr: listenAddr,
				Config: orchestrator.BuildConfig{
					SelfContained:       selfContained,
					OutputStyle:         orchestrator.OutputStyle(outputStyle),
					CreateBuildManifest: createBuildManifest,
					UseWorkers:          !cfg.NoWorkers,
				},
			}

			return o.Serve(cmd.Context(), gc)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", ":35729", "address to expose /metrics and /healthz on; empty disables both")
	cmd.Flags().BoolVar(&selfContained, "self-contained", false, "produce a self-contained build (disables the build manifest)")
	cmd.Flags().StringVar(&outputStyle, "output-style", string(orchestrator.OutputDefault), "output style: Default, Namespace, or Flat")
	cmd.Flags().BoolVar(&createBuildManifest, "build-manifest", false, "emit .forgebuild/build-manifest.json on every rebuild")

	return cmd
}
