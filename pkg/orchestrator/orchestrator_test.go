package orchestrator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/events"
	"github.com/forgebuild/engine/pkg/orchestrator"
	"github.com/forgebuild/engine/pkg/project"
	"github.com/forgebuild/engine/pkg/stage"
	"github.com/forgebuild/engine/pkg/tasks"
	"github.com/forgebuild/engine/pkg/vfs"
)

func copyAll(ctx context.Context, ws *vfs.Workspace, util tasks.TaskUtil) error {
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

func newOrchestrator(t *testing.T, srcDir string) *orchestrator.Orchestrator {
	t.Helper()
	registry := tasks.NewMemRegistry()
	registry.SetOrder("application", []string{"copy"})
	registry.Register("copy", copyAll)

	p := &project.Project{Name: "app", Type: "application", Namespace: "application/a", SourceDir: srcDir, RootProject: true}

	return &orchestrator.Orchestrator{
		Projects:    map[string]*project.Project{"app": p},
		Registry:    registry,
		Persistence: stage.NewPersistence(t.TempDir()),
	}
}

func TestBuildToTargetColdBuildWritesNamespacedOutput(t *testing.T) {
	srcDir := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(srcDir, "test.js"), []byte("var x=1;"), 0o644))

	o := newOrchestrator(t, srcDir)
	destDir := t.TempDir()

	err := o.BuildToTarget(context.Background(), orchestrator.Target{
		DestPath: destDir,
		Config:   orchestrator.BuildConfig{OutputStyle: orchestrator.OutputDefault},
	})
	assert.NilError(t, err)

	data, err := os.ReadFile(filepath.Join(destDir, "resources", "application", "a", "test.js"))
	assert.NilError(t, err)
	assert.Equal(t, string(data), "var x=1;")
}

func TestBuildToTargetFlatStyleStripsNamespace(t *testing.T) {
	srcDir := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(srcDir, "test.js"), []byte("var x=1;"), 0o644))

	o := newOrchestrator(t, srcDir)
	destDir := t.TempDir()

	err := o.BuildToTarget(context.Background(), orchestrator.Target{
		DestPath: destDir,
		Config:   orchestrator.BuildConfig{OutputStyle: orchestrator.OutputFlat},
	})
	assert.NilError(t, err)

	data, err := os.ReadFile(filepath.Join(destDir, "test.js"))
	assert.NilError(t, err)
	assert.Equal(t, string(data), "var x=1;")
}

func TestBuildToTargetRejectsFlatForThemeLibrary(t *testing.T) {
	srcDir := t.TempDir()
	o := newOrchestrator(t, srcDir)
	o.Projects["app"].Type = "theme-library"
	o.Registry.(*tasks.MemRegistry).SetOrder("theme-library", []string{"copy"})

	err := o.BuildToTarget(context.Background(), orchestrator.Target{
		DestPath: t.TempDir(),
		Config:   orchestrator.BuildConfig{OutputStyle: orchestrator.OutputFlat},
	})
	assert.ErrorContains(t, err, "Flat output style is not supported")
}

func TestBuildToTargetPublishesACommonRunIDAcrossAllEvents(t *testing.T) {
	srcDir := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(srcDir, "test.js"), []byte("var x=1;"), 0o644))

	o := newOrchestrator(t, srcDir)
	bus := events.New()
	o.Bus = bus
	ch, unsub := bus.Subscribe()
	defer unsub()

	var received []events.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			received = append(received, ev)
		}
	}()

	assert.NilError(t, o.BuildToTarget(context.Background(), orchestrator.Target{DestPath: t.TempDir()}))
	unsub()
	<-done

	assert.Assert(t, len(received) > 0)
	runID := received[0].RunID
	assert.Assert(t, runID != "")
	for _, ev := range received {
		assert.Equal(t, ev.RunID, runID)
	}
}

func TestBuildToTargetWarmBuildSkipsTaskExecution(t *testing.T) {
	srcDir := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(srcDir, "test.js"), []byte("var x=1;"), 0o644))

	registry := tasks.NewMemRegistry()
	registry.SetOrder("application", []string{"copy"})

	calls := 0
	registry.Register("copy", func(ctx context.Context, ws *vfs.Workspace, util tasks.TaskUtil) error {
		calls++
		return copyAll(ctx, ws, util)
	})

	p := &project.Project{Name: "app", Type: "application", Namespace: "app", SourceDir: srcDir, RootProject: true}
	persistence := stage.NewPersistence(t.TempDir())

	build := func() error {
		o := &orchestrator.Orchestrator{
			Projects:    map[string]*project.Project{"app": p},
			Registry:    registry,
			Persistence: persistence,
		}
		return o.BuildToTarget(context.Background(), orchestrator.Target{DestPath: t.TempDir()})
	}

	assert.NilError(t, build())
	assert.Equal(t, calls, 1)

	assert.NilError(t, build())
	assert.Equal(t, calls, 1, "task must not re-run on an unchanged warm build")
}
