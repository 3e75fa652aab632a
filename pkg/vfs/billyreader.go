package vfs

import (
	"context"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/moby/patternmatcher"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/resource"
)

// BillyReader reads through a go-git/go-billy Filesystem, mirroring the
// teacher's BillyFilesystem. This is how a project's sources can be backed
// by an in-memory git worktree (billy/memfs) fetched from a go-git remote,
// without ever touching the caller's disk.
type BillyReader struct {
	fs      billy.Filesystem
	project string
}

// NewBillyReader wraps fs, tagging every resource it produces with project.
func NewBillyReader(fs billy.Filesystem, project string) *BillyReader {
	return &BillyReader{fs: fs, project: project}
}

func (b *BillyReader) ByPath(ctx context.Context, p string) (*resource.Resource, error) {
	real := trimLeadingSlash(Normalize(p))
	info, err := b.fs.Lstat(real)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, engerr.Wrap(engerr.InvalidState, "BillyReader.ByPath", err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}
	f, err := b.fs.Open(real)
	if err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "BillyReader.ByPath", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "BillyReader.ByPath", err)
	}
	return resource.New(Normalize(p), data, b.project), nil
}

func (b *BillyReader) ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error) {
	candidates, err := b.walk("/")
	if err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "BillyReader.ByGlob", err)
	}

	trimmed := trimLeadingSlash(pattern)
	var matches []string
	for _, c := range candidates {
		ok, err := patternmatcher.Matches(trimLeadingSlash(c), []string{trimmed})
		if err != nil {
			return nil, engerr.Wrap(engerr.InvalidArgument, "BillyReader.ByGlob", err)
		}
		if ok {
			matches = append(matches, c)
		}
	}

	out := make([]*resource.Resource, 0, len(matches))
	for _, m := range sortedUniquePaths(matches) {
		res, err := b.ByPath(ctx, m)
		if err != nil {
			if engerr.Is(err, engerr.NotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (b *BillyReader) walk(dir string) ([]string, error) {
	var out []string
	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		full := dir
		if full != "/" {
			full += "/"
		}
		full += e.Name()
		if e.IsDir() {
			children, err := b.walk(full)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
			continue
		}
		out = append(out, full)
	}
	return out, nil
}
