package vfs

import (
	"context"

	"github.com/forgebuild/engine/pkg/resource"
)

// Workspace composes a single writer with a prioritized list of fallback
// readers into the read/write duplex a task's contract receives: reads are
// tried against the writer first (so a task sees its own prior writes),
// then against each reader in order; writes always go to the writer.
type Workspace struct {
	writer  Writer
	readers *ReaderCollection
}

// NewWorkspace builds a Workspace from a writer and its prioritized
// fallback readers.
func NewWorkspace(writer Writer, readers ...Reader) *Workspace {
	all := append([]Reader{writer}, readers...)
	return &Workspace{writer: writer, readers: NewReaderCollection(all...)}
}

func (w *Workspace) ByPath(ctx context.Context, p string) (*resource.Resource, error) {
	return w.readers.ByPath(ctx, p)
}

func (w *Workspace) ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error) {
	return w.readers.ByGlob(ctx, pattern, opts)
}

func (w *Workspace) Write(ctx context.Context, r *resource.Resource) error {
	return w.writer.Write(ctx, r)
}

// Writer returns the workspace's writer.
func (w *Workspace) Writer() Writer { return w.writer }
