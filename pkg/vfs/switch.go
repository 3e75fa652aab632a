package vfs

import (
	"context"
	"sync"

	"github.com/forgebuild/engine/pkg/resource"
)

// SwitchReader is a Reader whose inner delegate is installed after
// construction. Reads issued before the delegate is installed block until
// Install is called and then run against the now-installed reader; Install
// releases all of them at once, and the order in which they proceed is not
// defined.
// This lets a task graph wire up a reader for "my own future output" before
// that output actually exists, a shape the stage manager needs when two
// tasks read each other's staged results within the same build pass.
type SwitchReader struct {
	mu      sync.Mutex
	cond    *sync.Cond
	inner   Reader
	pending int
}

// NewSwitchReader returns a SwitchReader with no inner reader installed.
func NewSwitchReader() *SwitchReader {
	s := &SwitchReader{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Install sets the inner reader and releases every call currently blocked
// on it at once; their arrival order is not kept. Install may be called again after
// Uninstall to install a new delegate.
func (s *SwitchReader) Install(r Reader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner = r
	s.cond.Broadcast()
}

// Uninstall clears the inner reader. Reads already in flight against the
// previously installed reader are not affected — they already hold their
// own reference to it — but any read issued after Uninstall returns blocks
// again until the next Install, per spec §4.1.
func (s *SwitchReader) Uninstall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner = nil
}

func (s *SwitchReader) waitForInner(ctx context.Context) (Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inner == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.pending++
		s.cond.Wait()
		s.pending--
	}
	return s.inner, nil
}

func (s *SwitchReader) ByPath(ctx context.Context, p string) (*resource.Resource, error) {
	r, err := s.waitForInner(ctx)
	if err != nil {
		return nil, err
	}
	return r.ByPath(ctx, p)
}

func (s *SwitchReader) ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error) {
	r, err := s.waitForInner(ctx)
	if err != nil {
		return nil, err
	}
	return r.ByGlob(ctx, pattern, opts)
}

// Pending reports how many calls are currently blocked waiting for Install.
func (s *SwitchReader) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
