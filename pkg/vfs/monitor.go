package vfs

import (
	"context"
	"sync"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/request"
	"github.com/forgebuild/engine/pkg/resource"
)

// MonitoredReaderWriter wraps a Writer, recording every path and glob
// pattern a task asks of it as a request.Set, plus the set of paths written
// through it. This is how the stage manager learns, after a task runs, what
// a task actually depended on — the request set it later stores in the
// DAG — without the task itself reporting anything.
//
// Once Seal is called, every subsequent read or write raises InvalidState
// instead of delegating: the build that owns the monitor has moved past the
// point where a new read could affect the recorded dependency set, and a
// write past that point would never be reflected in the request set the
// DAG stores, so the monitor refuses both rather than silently dropping
// them.
type MonitoredReaderWriter struct {
	inner Writer

	mu           sync.Mutex
	paths        map[string]bool
	patterns     map[string]bool
	pathsWritten map[string]bool
	sealed       bool
}

// NewMonitoredReaderWriter wraps inner for request tracking.
func NewMonitoredReaderWriter(inner Writer) *MonitoredReaderWriter {
	return &MonitoredReaderWriter{
		inner:        inner,
		paths:        map[string]bool{},
		patterns:     map[string]bool{},
		pathsWritten: map[string]bool{},
	}
}

func (m *MonitoredReaderWriter) ByPath(ctx context.Context, p string) (*resource.Resource, error) {
	p = Normalize(p)
	if err := m.record(func() { m.paths[p] = true }); err != nil {
		return nil, err
	}
	return m.inner.ByPath(ctx, p)
}

func (m *MonitoredReaderWriter) ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error) {
	if err := m.record(func() { m.patterns[pattern] = true }); err != nil {
		return nil, err
	}
	return m.inner.ByGlob(ctx, pattern, opts)
}

func (m *MonitoredReaderWriter) Write(ctx context.Context, r *resource.Resource) error {
	if err := m.record(func() { m.pathsWritten[Normalize(r.Path())] = true }); err != nil {
		return err
	}
	return m.inner.Write(ctx, r)
}

// record runs f under lock and returns InvalidState once the monitor is
// sealed, without running f — every read/write path funnels through here so
// seal discipline is enforced in one place.
func (m *MonitoredReaderWriter) record(f func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return engerr.New(engerr.InvalidState, "MonitoredReaderWriter", "monitor is sealed")
	}
	f()
	return nil
}

// Seal freezes the recorded request sets; every subsequent ByPath/ByGlob/
// Write call raises InvalidState instead of delegating to inner.
func (m *MonitoredReaderWriter) Seal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sealed = true
}

// Sealed reports whether Seal has been called.
func (m *MonitoredReaderWriter) Sealed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sealed
}

// GetResourceRequests seals the monitor and returns the accumulated read
// requests (paths and patterns) as a request.Set, for recording into the
// resource-request DAG. Sealing here (rather than leaving it to a separate
// call) is what spec §3 means by "getResourceRequests() seals and returns".
func (m *MonitoredReaderWriter) GetResourceRequests() request.Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sealed = true
	reqs := make([]request.Request, 0, len(m.paths)+len(m.patterns))
	for p := range m.paths {
		reqs = append(reqs, request.NewPath(p))
	}
	for p := range m.patterns {
		reqs = append(reqs, request.NewPatterns([]string{p}))
	}
	return request.NewSet(reqs...)
}

// PathsWritten returns the set of paths written through this monitor.
func (m *MonitoredReaderWriter) PathsWritten() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.pathsWritten))
	for p := range m.pathsWritten {
		out = append(out, p)
	}
	return sortedUniquePaths(out)
}

// Inner returns the wrapped writer.
func (m *MonitoredReaderWriter) Inner() Writer { return m.inner }
