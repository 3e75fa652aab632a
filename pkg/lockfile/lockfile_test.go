package lockfile_test

import (
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/lockfile"
)

func TestAcquireThenReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")

	l, err := lockfile.Acquire(path)
	assert.NilError(t, err)
	assert.NilError(t, l.Release())

	l2, err := lockfile.Acquire(path)
	assert.NilError(t, err)
	assert.NilError(t, l2.Release())
}

func TestSecondAcquireFailsWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")

	l, err := lockfile.Acquire(path)
	assert.NilError(t, err)
	defer l.Release()

	_, err = lockfile.Acquire(path)
	assert.Assert(t, engerr.Is(err, engerr.InvalidState))
}
