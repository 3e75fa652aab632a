package vfs

import (
	"context"
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/resource"
)

// GetResourceFunc fetches the resource at an exact path, returning
// (nil, nil) if absent.
type GetResourceFunc func(ctx context.Context, path string) (*resource.Resource, error)

// ListResourcePathsFunc lists every path the proxy reader can serve.
type ListResourcePathsFunc func(ctx context.Context) ([]string, error)

// ProxyReader is a Reader built from two injected callbacks, supporting
// glob matching over the callback's listed paths.
//
// Design note (spec §9 Open Question): the teacher's upstream Proxy reader
// has a _listResourcePaths that recursively calls itself — almost certainly
// a copy-paste bug that would infinite-loop. This implementation calls only
// the injected ListResourcePathsFunc, per the spec's explicit guidance to
// fix rather than reproduce that bug. Its []string result is used as
// returned; no further check is applied to the listed paths.
type ProxyReader struct {
	getResource       GetResourceFunc
	listResourcePaths ListResourcePathsFunc
}

// NewProxyReader builds a ProxyReader from the two callbacks.
func NewProxyReader(get GetResourceFunc, list ListResourcePathsFunc) *ProxyReader {
	return &ProxyReader{getResource: get, listResourcePaths: list}
}

func (p *ProxyReader) ByPath(ctx context.Context, path string) (*resource.Resource, error) {
	path = Normalize(path)
	res, err := p.getResource(ctx, path)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotFound
	}
	return res, nil
}

func (p *ProxyReader) ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error) {
	paths, err := p.listResourcePaths(ctx)
	if err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "ProxyReader.ByGlob", err)
	}
	var matches []string
	for _, candidate := range paths {
		// dot:true — dotfiles/dot-directories participate in matching,
		// which is patternmatcher's default behavior (it does not treat a
		// leading "." specially unless the pattern itself contains one).
		ok, err := patternmatcher.Matches(strings.TrimPrefix(Normalize(candidate), "/"), []string{strings.TrimPrefix(pattern, "/")})
		if err != nil {
			return nil, engerr.Wrap(engerr.InvalidArgument, "ProxyReader.ByGlob", err)
		}
		if ok {
			matches = append(matches, candidate)
		}
	}

	out := make([]*resource.Resource, 0, len(matches))
	for _, m := range sortedUniquePaths(matches) {
		res, err := p.getResource(ctx, Normalize(m))
		if err != nil {
			return nil, err
		}
		if res != nil {
			out = append(out, res)
		}
	}
	return out, nil
}
