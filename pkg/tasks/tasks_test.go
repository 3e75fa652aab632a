package tasks_test

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/resource"
	"github.com/forgebuild/engine/pkg/tasks"
	"github.com/forgebuild/engine/pkg/vfs"
)

type fakeUtil struct {
	project string
	tags    map[*resource.Resource]map[tasks.StandardTag]bool
}

func newFakeUtil(project string) *fakeUtil {
	return &fakeUtil{project: project, tags: map[*resource.Resource]map[tasks.StandardTag]bool{}}
}

func (f *fakeUtil) GetTag(r *resource.Resource, tag tasks.StandardTag) bool {
	return f.tags[r][tag]
}

func (f *fakeUtil) SetTag(r *resource.Resource, tag tasks.StandardTag) error {
	if f.tags[r] == nil {
		f.tags[r] = map[tasks.StandardTag]bool{}
	}
	f.tags[r][tag] = true
	return nil
}

func (f *fakeUtil) GetProject() string        { return f.project }
func (f *fakeUtil) GetDependencies() []string { return nil }
func (f *fakeUtil) RegisterCleanup(fn func()) {}
func (f *fakeUtil) IsRootProject() bool       { return true }

func TestMemRegistryOrderAndVersions(t *testing.T) {
	r := tasks.NewMemRegistry()
	r.SetOrder("application", []string{"bundle", "minify"})
	r.SetVersions([]tasks.ComponentVersion{{Name: "minify", Version: "2.0"}, {Name: "bundle", Version: "1.0"}})

	order, err := r.TasksForProjectType("application")
	assert.NilError(t, err)
	assert.DeepEqual(t, order, []string{"bundle", "minify"})

	versions := r.Versions()
	assert.Equal(t, versions[0].Name, "bundle")
	assert.Equal(t, versions[1].Name, "minify")
}

func TestMemRegistryUnknownProjectType(t *testing.T) {
	r := tasks.NewMemRegistry()
	_, err := r.TasksForProjectType("missing")
	assert.Assert(t, engerr.Is(err, engerr.InvalidConfiguration))
}

func TestMemRegistryRegisterAndRunTask(t *testing.T) {
	r := tasks.NewMemRegistry()
	var ran bool
	r.Register("mark-bundle", func(ctx context.Context, ws *vfs.Workspace, util tasks.TaskUtil) error {
		ran = true
		return util.SetTag(resource.New("/out.js", nil, util.GetProject()), tasks.StandardTags.IsBundle)
	})

	task, ok := r.Task("mark-bundle")
	assert.Assert(t, ok)

	util := newFakeUtil("core")
	err := task(context.Background(), nil, util)
	assert.NilError(t, err)
	assert.Assert(t, ran)
}
