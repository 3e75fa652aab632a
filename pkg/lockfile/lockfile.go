// Package lockfile provides an exclusive advisory lock guarding a project's
// build-signature cache directory, so two concurrent builds of the same
// project never corrupt each other's stage cache. The OS-specific locking
// primitive is split into lockfile_unix.go/lockfile_windows.go build-tagged
// files, mirroring the teacher's platform-specific wait_pid_{linux,darwin,
// windows}.go split.
package lockfile

import (
	"os"

	"github.com/forgebuild/engine/pkg/engerr"
)

// Lock holds an acquired advisory lock on a single file.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if necessary) the file at path and takes an
// exclusive, non-blocking advisory lock on it. If the lock is already held
// by another process, it returns an engerr.Error{Kind: InvalidState}.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "lockfile.Acquire", err)
	}
	if err := lockExclusive(f); err != nil {
		f.Close()
		return nil, engerr.Wrap(engerr.InvalidState, "lockfile.Acquire", err)
	}
	return &Lock{f: f}, nil
}

// Release unlocks and closes the underlying file.
func (l *Lock) Release() error {
	if err := unlock(l.f); err != nil {
		l.f.Close()
		return engerr.Wrap(engerr.InvalidState, "Lock.Release", err)
	}
	return l.f.Close()
}
