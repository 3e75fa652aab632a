package vfs

import (
	"context"
	"strings"

	"github.com/forgebuild/engine/pkg/resource"
)

// NamespacedReader projects a source reader's bare paths onto the
// "/resources/<namespace>/" (or "/test-resources/<namespace>/") virtual
// tree a task actually sees, per spec §4.1's buildtime projection style.
// ByPath requires the prefix and strips it before delegating; ByGlob
// delegates the pattern unmodified (so "**/*.js" still matches against the
// bare source tree) and re-adds the prefix to every hit's path.
type NamespacedReader struct {
	inner  Reader
	prefix string
}

// NewNamespacedReader wraps inner, projecting its paths under prefix.
func NewNamespacedReader(inner Reader, prefix string) *NamespacedReader {
	prefix = Normalize(prefix)
	if prefix != "/" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &NamespacedReader{inner: inner, prefix: prefix}
}

func (n *NamespacedReader) ByPath(ctx context.Context, p string) (*resource.Resource, error) {
	p = Normalize(p)
	if !strings.HasPrefix(p, n.prefix) {
		return nil, ErrNotFound
	}
	rel := "/" + strings.TrimPrefix(p, n.prefix)
	res, err := n.inner.ByPath(ctx, rel)
	if err != nil {
		return nil, err
	}
	_ = res.SetPath(p)
	return res, nil
}

func (n *NamespacedReader) ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error) {
	hits, err := n.inner.ByGlob(ctx, pattern, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*resource.Resource, 0, len(hits))
	for _, h := range hits {
		_ = h.SetPath(n.prefix + strings.TrimPrefix(h.Path(), "/"))
		out = append(out, h)
	}
	return out, nil
}

// FlatReader strips a fixed prefix from every path, the inverse projection
// used by the "flat" output style: a resource that lives at
// "/resources/<namespace>/foo.js" is exposed as "/foo.js".
type FlatReader struct {
	inner  Reader
	prefix string
}

// NewFlatReader wraps inner, stripping prefix from every path it serves.
func NewFlatReader(inner Reader, prefix string) *FlatReader {
	prefix = Normalize(prefix)
	if prefix != "/" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &FlatReader{inner: inner, prefix: prefix}
}

func (f *FlatReader) ByPath(ctx context.Context, p string) (*resource.Resource, error) {
	res, err := f.inner.ByPath(ctx, f.prefix+strings.TrimPrefix(Normalize(p), "/"))
	if err != nil {
		return nil, err
	}
	_ = res.SetPath(Normalize(p))
	return res, nil
}

func (f *FlatReader) ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error) {
	hits, err := f.inner.ByGlob(ctx, pattern, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*resource.Resource, 0, len(hits))
	for _, h := range hits {
		stripped := "/" + strings.TrimPrefix(strings.TrimPrefix(h.Path(), f.prefix), "/")
		_ = h.SetPath(stripped)
		out = append(out, h)
	}
	return out, nil
}
