package vfs

import (
	"context"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/resource"
)

// ReaderCollection is an ordered, priority list of readers. ByPath returns
// the first non-null hit; ByGlob unions hits from every reader in order,
// deduplicating by path so a reader-collection never returns the same path
// twice (per spec §4.1 invariant).
type ReaderCollection struct {
	readers []Reader
}

// NewReaderCollection builds a collection prioritized in the given order:
// readers[0] is consulted first.
func NewReaderCollection(readers ...Reader) *ReaderCollection {
	return &ReaderCollection{readers: append([]Reader(nil), readers...)}
}

func (c *ReaderCollection) ByPath(ctx context.Context, p string) (*resource.Resource, error) {
	p = Normalize(p)
	for _, r := range c.readers {
		res, err := r.ByPath(ctx, p)
		if err != nil {
			if engerr.Is(err, engerr.NotFound) {
				continue
			}
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, ErrNotFound
}

func (c *ReaderCollection) ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error) {
	seen := map[string]bool{}
	var out []*resource.Resource
	for _, r := range c.readers {
		hits, err := r.ByGlob(ctx, pattern, opts)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if seen[h.Path()] {
				continue
			}
			seen[h.Path()] = true
			out = append(out, h)
		}
	}
	return out, nil
}

// Readers returns the collection's members in priority order.
func (c *ReaderCollection) Readers() []Reader { return append([]Reader(nil), c.readers...) }
