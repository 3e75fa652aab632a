package vfs

import (
	"context"

	"github.com/go-git/go-billy/v5/memfs"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/resource"
)

// MemWriter is an empty, in-memory writer backed by billy/memfs, used as a
// stage's live writer: a task writes its outputs here, and they never touch
// the caller's disk unless the stage manager later persists them.
type MemWriter struct {
	*BillyReader
	project string
}

// NewMemWriter returns an empty in-memory writer tagging resources with
// project.
func NewMemWriter(project string) *MemWriter {
	fs := memfs.New()
	return &MemWriter{BillyReader: NewBillyReader(fs, project), project: project}
}

func (w *MemWriter) Write(ctx context.Context, r *resource.Resource) error {
	p := trimLeadingSlash(Normalize(r.Path()))
	f, err := w.BillyReader.fs.Create(p)
	if err != nil {
		return engerr.Wrap(engerr.InvalidState, "MemWriter.Write", err)
	}
	defer f.Close()
	data, err := r.Bytes()
	if err != nil {
		return engerr.Wrap(engerr.InvalidState, "MemWriter.Write", err)
	}
	if _, err := f.Write(data); err != nil {
		return engerr.Wrap(engerr.InvalidState, "MemWriter.Write", err)
	}
	return nil
}
