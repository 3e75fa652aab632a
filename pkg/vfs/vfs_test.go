package vfs_test

import (
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/resource"
	"github.com/forgebuild/engine/pkg/vfs"
)

type staticReader struct {
	byPath map[string]*resource.Resource
}

func newStaticReader(project string, paths ...string) *staticReader {
	m := map[string]*resource.Resource{}
	for _, p := range paths {
		m[vfs.Normalize(p)] = resource.New(p, []byte(p), project)
	}
	return &staticReader{byPath: m}
}

func (s *staticReader) ByPath(ctx context.Context, p string) (*resource.Resource, error) {
	r, ok := s.byPath[vfs.Normalize(p)]
	if !ok {
		return nil, vfs.ErrNotFound
	}
	return r, nil
}

func (s *staticReader) ByGlob(ctx context.Context, pattern string, opts vfs.GlobOptions) ([]*resource.Resource, error) {
	var out []*resource.Resource
	for _, r := range s.byPath {
		out = append(out, r)
	}
	return out, nil
}

func TestReaderCollectionPrefersEarlierReader(t *testing.T) {
	ctx := context.Background()
	first := newStaticReader("a", "/shared.js")
	second := newStaticReader("b", "/shared.js", "/only-in-second.js")

	c := vfs.NewReaderCollection(first, second)

	res, err := c.ByPath(ctx, "/shared.js")
	assert.NilError(t, err)
	assert.Equal(t, res.Project(), "a")

	res, err = c.ByPath(ctx, "/only-in-second.js")
	assert.NilError(t, err)
	assert.Equal(t, res.Project(), "b")

	_, err = c.ByPath(ctx, "/missing.js")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

func TestReaderCollectionDedupesGlobHits(t *testing.T) {
	ctx := context.Background()
	first := newStaticReader("a", "/x.js")
	second := newStaticReader("b", "/x.js", "/y.js")
	c := vfs.NewReaderCollection(first, second)

	hits, err := c.ByGlob(ctx, "*.js", vfs.DefaultGlobOptions)
	assert.NilError(t, err)
	assert.Equal(t, len(hits), 2)
}

func TestMonitoredReaderWriterRecordsRequests(t *testing.T) {
	ctx := context.Background()
	w := vfs.NewMemWriter("proj")
	m := vfs.NewMonitoredReaderWriter(w)

	res := resource.New("/a.js", []byte("x"), "proj")
	assert.NilError(t, m.Write(ctx, res))

	_, _ = m.ByPath(ctx, "/a.js")
	_, _ = m.ByGlob(ctx, "*.js", vfs.DefaultGlobOptions)

	reqs := m.GetResourceRequests()
	assert.Equal(t, reqs.Len(), 2)

	written := m.PathsWritten()
	assert.DeepEqual(t, written, []string{"/a.js"})
}

func TestMonitoredReaderWriterSealStopsRecording(t *testing.T) {
	ctx := context.Background()
	w := vfs.NewMemWriter("proj")
	m := vfs.NewMonitoredReaderWriter(w)

	_, _ = m.ByPath(ctx, "/a.js")
	m.Seal()

	_, err := m.ByPath(ctx, "/b.js")
	assert.ErrorContains(t, err, "sealed")

	_, err = m.ByGlob(ctx, "*.js", vfs.DefaultGlobOptions)
	assert.ErrorContains(t, err, "sealed")

	reqs := m.GetResourceRequests()
	assert.Equal(t, reqs.Len(), 1)

	err = m.Write(ctx, resource.New("/c.js", []byte("x"), "proj"))
	assert.ErrorContains(t, err, "sealed")
}

func TestSwitchReaderBlocksUntilInstalled(t *testing.T) {
	ctx := context.Background()
	s := vfs.NewSwitchReader()

	done := make(chan struct{})
	var got *resource.Resource
	go func() {
		got, _ = s.ByPath(ctx, "/a.js")
		close(done)
	}()

	for s.Pending() == 0 {
		time.Sleep(time.Millisecond)
	}

	s.Install(newStaticReader("proj", "/a.js"))
	<-done
	assert.Assert(t, got != nil)
	assert.Equal(t, got.Project(), "proj")
}

func TestSwitchReaderRequeuesAfterUninstall(t *testing.T) {
	ctx := context.Background()
	s := vfs.NewSwitchReader()

	s.Install(newStaticReader("first", "/a.js"))
	res, err := s.ByPath(ctx, "/a.js")
	assert.NilError(t, err)
	assert.Equal(t, res.Project(), "first")

	s.Uninstall()

	done := make(chan struct{})
	var got *resource.Resource
	go func() {
		got, _ = s.ByPath(ctx, "/a.js")
		close(done)
	}()

	for s.Pending() == 0 {
		time.Sleep(time.Millisecond)
	}

	s.Install(newStaticReader("second", "/a.js"))
	<-done
	assert.Assert(t, got != nil)
	assert.Equal(t, got.Project(), "second")
}

func TestWorkspacePrefersWriterOverFallbackReaders(t *testing.T) {
	ctx := context.Background()
	w := vfs.NewMemWriter("proj")
	fallback := newStaticReader("fallback", "/a.js")

	ws := vfs.NewWorkspace(w, fallback)

	res, err := ws.ByPath(ctx, "/a.js")
	assert.NilError(t, err)
	assert.Equal(t, res.Project(), "fallback")

	assert.NilError(t, ws.Write(ctx, resource.New("/a.js", []byte("mine"), "proj")))

	res, err = ws.ByPath(ctx, "/a.js")
	assert.NilError(t, err)
	assert.Equal(t, res.Project(), "proj")
}
