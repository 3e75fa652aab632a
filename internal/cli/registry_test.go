package cli_test

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/internal/cli"
	"github.com/forgebuild/engine/pkg/testfix"
	"github.com/forgebuild/engine/pkg/vfs"
)

func TestDefaultRegistryCopiesResourcesThrough(t *testing.T) {
	r := cli.DefaultRegistry()

	order, err := r.TasksForProjectType("application")
	assert.NilError(t, err)
	assert.Assert(t, len(order) > 0)
	assert.Equal(t, order[0], "copyResources")

	task, ok := r.Task("copyResources")
	assert.Assert(t, ok)

	src := testfix.Reader("app", map[string]string{"a.txt": "hi"})
	ws := vfs.NewWorkspace(vfs.NewMemWriter("app"), src)
	assert.NilError(t, task(context.Background(), ws, nil))

	res, err := ws.ByPath(context.Background(), "/a.txt")
	assert.NilError(t, err)
	data, err := res.Bytes()
	assert.NilError(t, err)
	assert.Equal(t, string(data), "hi")
}
