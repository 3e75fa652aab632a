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

// NewBuildCmd is the forgebuild build subcommand: a one-shot, cold-or-warm
// build to a destination directory, mirroring the shape of the teacher's
// func build command (resolve config, run, report status).
func NewBuildCmd() *cobra.Command {
	var (
		destPath            string
		cleanDest           bool
		selfContained       bool
		outputStyle         string
		createBuildManifest bool
		includedTasks       []string
		excludedTasks       []string
		dependencyIncludes  []string
		explicitIncludes    []string
		explicitExcludes    []string
	)

	cmd := &cobra.Command{
		Use:   "build [project-dir]",
		Short: "Build a project to a destination directory",
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

			target := orchestrator.Target{
				DestPath:  destPath,
				CleanDest: cleanDest,
				Filter: project.Filter{
					DependencyIncludes: dependencyIncludes,
					ExplicitIncludes:   explicitIncludes,
					ExplicitExcludes:   explicitExcludes,
				},
				Config: orchestrator.BuildConfig{
					SelfContained:       selfContained,
					OutputStyle:         orchestrator.OutputStyle(outputStyle),
					CreateBuildManifest: createBuildManifest,
					IncludedTasks:       includedTasks,
					ExcludedTasks:       excludedTasks,
					UseWorkers:          !cfg.NoWorkers,
				},
			}

			return o.BuildToTarget(cmd.Context(), target)
		},
	}

	cmd.Flags().StringVar(&destPath, "dest", "dist", "output directory")
	cmd.Flags().BoolVar(&cleanDest, "clean", false, "remove dest before writing")
	cmd.Flags().BoolVar(&selfContained, "self-contained", false, "produce a self-contained build (disables the build manifest)")
	cmd.Flags().StringVar(&outputStyle, "output-style", string(orchestrator.OutputDefault), "output style: Default, Namespace, or Flat")
	cmd.Flags().BoolVar(&createBuildManifest, "build-manifest", false, "emit .forgebuild/build-manifest.json")
	cmd.Flags().StringSliceVar(&includedTasks, "include-task", nil, "restrict the task order to these task ids")
	cmd.Flags().StringSliceVar(&excludedTasks, "exclude-task", nil, "drop these task ids from the task order")
	cmd.Flags().StringSliceVar(&dependencyIncludes, "include-dependency", nil, "dependency-include project filter; only checked against --include/--exclude, every project is still built")
	cmd.Flags().StringSliceVar(&explicitIncludes, "include", nil, "explicit-include project filter; only checked against --include-dependency, every project is still built")
	cmd.Flags().StringSliceVar(&explicitExcludes, "exclude", nil, "explicit-exclude project filter; only checked against --include-dependency, every project is still built")

	return cmd
}
