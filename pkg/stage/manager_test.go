package stage_test

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/buildsig"
	"github.com/forgebuild/engine/pkg/stage"
	"github.com/forgebuild/engine/pkg/tasks"
	"github.com/forgebuild/engine/pkg/testfix"
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

func TestRunProjectColdRunRecordsThenWarmRunReplays(t *testing.T) {
	ctx := context.Background()
	proj := testfix.Project("app")
	sig := buildsig.Compute(buildsig.Input{ProjectName: proj.Name, TaskIDs: []string{"copy"}})
	sources := map[stage.Style]vfs.Reader{
		stage.StyleDist: testfix.Reader("app", map[string]string{"a.txt": "hello"}),
	}
	persistence := stage.NewPersistence(t.TempDir())
	taskOf := func(id string) (tasks.Task, bool) {
		if id == "copy" {
			return copyAll, true
		}
		return nil, false
	}

	// cold
	prep1, err := persistence.Load(ctx, nil, proj.Name, sig)
	assert.NilError(t, err)
	bc1 := stage.NewBuildContext(proj, sig, []string{"copy"}, sources)
	m := &stage.Manager{Style: stage.StyleDist}
	assert.NilError(t, m.RunProject(ctx, bc1, persistence, prep1, []string{"copy"}, taskOf, nil))
	assert.Assert(t, !bc1.Stages[0].IsCached())

	// warm: same signature, same source content
	assert.NilError(t, prep1.Lock.Release())
	prep2, err := persistence.Load(ctx, nil, proj.Name, sig)
	assert.NilError(t, err)
	_, ok := prep2.Nodes["copy"]
	assert.Assert(t, ok)

	bc2 := stage.NewBuildContext(proj, sig, []string{"copy"}, sources)
	assert.Assert(t, m.AllValid(ctx, bc2, prep2, []string{"copy"}))

	failIfCalled := func(ctx context.Context, ws *vfs.Workspace, util tasks.TaskUtil) error {
		t.Fatal("task should not run again on a warm, unchanged build")
		return nil
	}
	taskOf2 := func(id string) (tasks.Task, bool) { return failIfCalled, true }
	assert.NilError(t, m.RunProject(ctx, bc2, persistence, prep2, []string{"copy"}, taskOf2, nil))
	assert.Assert(t, bc2.Stages[0].IsCached())
}

func TestRunProjectInvalidatesOnSourceChange(t *testing.T) {
	ctx := context.Background()
	proj := testfix.Project("app")
	sig := buildsig.Compute(buildsig.Input{ProjectName: proj.Name, TaskIDs: []string{"copy"}})
	persistence := stage.NewPersistence(t.TempDir())
	taskOf := func(id string) (tasks.Task, bool) { return copyAll, true }

	sources1 := map[stage.Style]vfs.Reader{
		stage.StyleDist: testfix.Reader("app", map[string]string{"a.txt": "hello"}),
	}
	prep1, err := persistence.Load(ctx, nil, proj.Name, sig)
	assert.NilError(t, err)
	bc1 := stage.NewBuildContext(proj, sig, []string{"copy"}, sources1)
	m := &stage.Manager{Style: stage.StyleDist}
	assert.NilError(t, m.RunProject(ctx, bc1, persistence, prep1, []string{"copy"}, taskOf, nil))

	sources2 := map[stage.Style]vfs.Reader{
		stage.StyleDist: testfix.Reader("app", map[string]string{"a.txt": "goodbye"}),
	}
	assert.NilError(t, prep1.Lock.Release())
	prep2, err := persistence.Load(ctx, nil, proj.Name, sig)
	assert.NilError(t, err)
	bc2 := stage.NewBuildContext(proj, sig, []string{"copy"}, sources2)
	assert.Assert(t, !m.AllValid(ctx, bc2, prep2, []string{"copy"}))
}
