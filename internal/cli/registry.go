package cli

import (
	"context"

	"github.com/forgebuild/engine/pkg/tasks"
	"github.com/forgebuild/engine/pkg/vfs"
)

// DefaultRegistry is the CLI's built-in stand-in for the real task
// registry (spec §6's "task registry" is an external collaborator, out of
// this engine's scope). It wires just enough tasks to exercise a build
// end to end: copyResources actually moves bytes into the stage output;
// the rest are deliberately inert placeholders for the concrete
// minification/bundling/manifest tasks a real framework build runs, named
// after spec.md's own seed scenarios so a cache-hit/cache-miss demo
// behaves the way the scenarios describe.
func DefaultRegistry() *tasks.MemRegistry {
	r := tasks.NewMemRegistry()

	r.SetVersions([]tasks.ComponentVersion{
		{Name: "cli/default-registry", Version: "1"},
	})

	order := []string{
		"copyResources",
		"escapeNonAsciiCharacters",
		"replaceCopyright",
		"enhanceManifest",
		"generateFlexChangesBundle",
	}
	for _, projectType := range []string{"application", "library", "theme-library", "module"} {
		r.SetOrder(projectType, order)
	}

	r.Register("copyResources", copyResourcesTask)
	r.Register("escapeNonAsciiCharacters", noopTask)
	r.Register("replaceCopyright", noopTask)
	r.Register("enhanceManifest", noopTask)
	r.Register("generateFlexChangesBundle", noopTask)

	return r
}

// copyResourcesTask copies every resource visible in the workspace through
// to the task's own output, unchanged.
func copyResourcesTask(ctx context.Context, ws *vfs.Workspace, util tasks.TaskUtil) error {
	resources, err := ws.ByGlob(ctx, "**/*", vfs.DefaultGlobOptions)
	if err != nil {
		return err
	}
	for _, r := range resources {
		if err := ws.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// noopTask stands in for a concrete build task (minification, copyright
// stamping, manifest enrichment, bundling) that this engine deliberately
// does not implement — see spec §1's "deliberately out of scope" list.
func noopTask(ctx context.Context, ws *vfs.Workspace, util tasks.TaskUtil) error {
	return nil
}
