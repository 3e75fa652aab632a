// Package vfs implements the layered virtual filesystem of spec §4.1: a
// small set of composable Reader/Writer interfaces — concrete on-disk and
// billy-backed readers, a proxy reader built from callbacks, a switch
// reader that queues reads until an inner reader is installed, a
// prioritized reader collection, and a monitoring wrapper that records
// every path/pattern asked of it.
//
// The composition style (small interfaces wrapping one another, each adding
// one concern) is lifted directly from the teacher's
// knative.dev/func/pkg/filesystem package, which wraps os/zip/billy
// filesystems behind a single Filesystem interface and layers subFS/maskingFS
// on top of it for chroot- and exclude-like behavior. Here the same idea is
// generalized from a read-only fs.FS to the read/write Reader/Writer duplex
// the build engine needs.
package vfs

import (
	"context"
	"path"
	"sort"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/resource"
)

// GlobOptions configures a ByGlob call.
type GlobOptions struct {
	// NoDir excludes directory entries from glob results. DefaultGlobOptions
	// sets it to true per spec §4.1 ("byGlob defaults to nodir = true"). The
	// readers in this package never return directory entries, so setting it
	// to false has no effect.
	NoDir bool
}

// DefaultGlobOptions is byGlob's default per spec.
var DefaultGlobOptions = GlobOptions{NoDir: true}

// Reader is the read half of the virtual filesystem contract.
type Reader interface {
	// ByPath returns the resource at the given absolute, normalized virtual
	// path, or a NotFound error if it does not exist.
	ByPath(ctx context.Context, p string) (*resource.Resource, error)
	// ByGlob returns every resource whose path matches pattern.
	ByGlob(ctx context.Context, pattern string, opts GlobOptions) ([]*resource.Resource, error)
}

// Writer is a Reader plus the ability to write a resource.
type Writer interface {
	Reader
	Write(ctx context.Context, r *resource.Resource) error
}

// Normalize converts p into the POSIX-style, absolute, normalized form all
// vfs paths are expected to be in.
func Normalize(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	return cleaned
}

var ErrNotFound = engerr.Sentinel(engerr.NotFound)

// sortedUniquePaths is a small helper shared by the glob-capable readers to
// produce deterministic output.
func sortedUniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
