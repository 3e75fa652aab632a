package vfs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/moby/patternmatcher"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/resource"
)

// OSReader reads a rooted on-disk tree, mirroring the teacher's
// osFilesystem: every virtual path is joined under root and resolved with
// the real os package.
type OSReader struct {
	root    string
	project string
}

// NewOSReader returns a reader rooted at root, tagging every resource it
// produces with project.
func NewOSReader(root, project string) *OSReader {
	return &OSReader{root: root, project: project}
}

func (o *OSReader) realPath(p string) string {
	return filepath.Join(o.root, filepath.FromSlash(Normalize(p)))
}

func (o *OSReader) ByPath(ctx context.Context, p string) (*resource.Resource, error) {
	real := o.realPath(p)
	info, err := os.Stat(real)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, engerr.Wrap(engerr.InvalidState, "OSReader.ByPath", err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(real)
	if err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "OSReader.ByPath", err)
	}
	res := resource.New(Normalize(p), data, o.project)
	return res, nil
}

func (o *OSReader) ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error) {
	var candidates []string
	err := filepath.Walk(o.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(o.root, path)
		if err != nil {
			return err
		}
		candidates = append(candidates, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engerr.Wrap(engerr.InvalidState, "OSReader.ByGlob", err)
	}

	trimmed := trimLeadingSlash(pattern)
	var matches []string
	for _, c := range candidates {
		ok, err := patternmatcher.Matches(c, []string{trimmed})
		if err != nil {
			return nil, engerr.Wrap(engerr.InvalidArgument, "OSReader.ByGlob", err)
		}
		if ok {
			matches = append(matches, c)
		}
	}

	out := make([]*resource.Resource, 0, len(matches))
	for _, m := range sortedUniquePaths(matches) {
		res, err := o.ByPath(ctx, m)
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

func trimLeadingSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}
