// Package resource implements the engine's immutable-once-sealed Resource
// record (spec §3) and the path-overriding Facade view onto it.
//
// The shape follows the teacher's knative.dev/func/pkg/functions.Function:
// a plain struct with yaml-free runtime fields, content addressed lazily via
// a SHA-256 hash computed on first access and cached, mirroring the
// buildstamp fingerprinting the teacher uses to decide whether a function
// has already been built.
package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/forgebuild/engine/pkg/engerr"
)

// Tag is a fixed-vocabulary marker attached to a Resource. Only tags in
// AllowedTags may be set; anything else is rejected at SetTag.
type Tag string

const (
	// IsDebugVariant marks a resource as the non-minified counterpart of a
	// minified sibling.
	IsDebugVariant Tag = "IsDebugVariant"
	// HasDebugVariant marks a resource for which a debug variant exists.
	HasDebugVariant Tag = "HasDebugVariant"
	// OmitFromBuildResult excludes a resource from the final write-out.
	OmitFromBuildResult Tag = "OmitFromBuildResult"
	// IsBundle marks a resource produced by bundling multiple sources.
	IsBundle Tag = "IsBundle"
)

// AllowedTags is the fixed allow-list referenced by spec §3.
var AllowedTags = map[Tag]bool{
	IsDebugVariant:      true,
	HasDebugVariant:     true,
	OmitFromBuildResult: true,
	IsBundle:            true,
}

// Resource is a named blob flowing through the build. Resources are mutable
// in place until Seal is called by the orchestrator, after which any
// mutating method returns an InvalidState error.
type Resource struct {
	path string

	bytes     []byte
	stream    io.Reader // set instead of bytes for a lazy, not-yet-read source
	sizeKnown bool
	size      int64

	integrity    string // hex sha256, computed lazily
	integritySet bool

	modTime time.Time
	trace   []string
	project string
	tags    map[Tag]bool
	sealed  bool
}

// New creates a Resource with in-memory content already known.
func New(path string, data []byte, project string) *Resource {
	return &Resource{
		path:      path,
		bytes:     data,
		sizeKnown: true,
		size:      int64(len(data)),
		modTime:   time.Now(),
		project:   project,
		tags:      map[Tag]bool{},
	}
}

// NewLazy creates a Resource whose content is read from stream on first
// access to Bytes. size is -1 if unknown.
func NewLazy(path string, stream io.Reader, size int64, project string) *Resource {
	r := &Resource{
		path:    path,
		stream:  stream,
		modTime: time.Now(),
		project: project,
		tags:    map[Tag]bool{},
	}
	if size >= 0 {
		r.sizeKnown = true
		r.size = size
	}
	return r
}

func (r *Resource) Path() string { return r.path }

// SetPath changes the resource's virtual path. Forbidden once sealed.
func (r *Resource) SetPath(p string) error {
	if r.sealed {
		return engerr.New(engerr.InvalidState, "Resource.SetPath", "resource is sealed")
	}
	r.path = p
	return nil
}

// Project returns the back-reference project name this resource belongs to.
func (r *Resource) Project() string { return r.project }

// SizeKnown reports whether Size is meaningful without reading the bytes.
func (r *Resource) SizeKnown() bool { return r.sizeKnown }

// Size returns the known size, or -1 if not known until read.
func (r *Resource) Size() int64 {
	if !r.sizeKnown {
		return -1
	}
	return r.size
}

// ModTime returns the resource's modification timestamp.
func (r *Resource) ModTime() time.Time { return r.modTime }

// Bytes materializes and returns the resource's content, reading the lazy
// stream exactly once and caching the result.
func (r *Resource) Bytes() ([]byte, error) {
	if r.bytes != nil || (r.sizeKnown && r.size == 0 && r.stream == nil) {
		return r.bytes, nil
	}
	if r.stream == nil {
		return nil, nil
	}
	b, err := io.ReadAll(r.stream)
	if err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "Resource.Bytes", err)
	}
	r.bytes = b
	r.stream = nil
	r.sizeKnown = true
	r.size = int64(len(b))
	return b, nil
}

// SetBytes replaces the resource's content. Forbidden once sealed.
func (r *Resource) SetBytes(b []byte) error {
	if r.sealed {
		return engerr.New(engerr.InvalidState, "Resource.SetBytes", "resource is sealed")
	}
	r.bytes = b
	r.stream = nil
	r.sizeKnown = true
	r.size = int64(len(b))
	r.integritySet = false
	r.modTime = time.Now()
	return nil
}

// Integrity returns the hex-encoded SHA-256 of the resource's content,
// computing and caching it on first call.
func (r *Resource) Integrity() (string, error) {
	if r.integritySet {
		return r.integrity, nil
	}
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	r.integrity = hex.EncodeToString(sum[:])
	r.integritySet = true
	return r.integrity, nil
}

// Seal makes the resource immutable. Idempotent.
func (r *Resource) Seal() { r.sealed = true }

// Sealed reports whether the resource has been sealed.
func (r *Resource) Sealed() bool { return r.sealed }

// Trace returns the resource's collection-trace list (diagnostic provenance,
// e.g. "glob:**/*.js@taskA" entries appended by readers as it is passed
// along).
func (r *Resource) Trace() []string {
	out := make([]string, len(r.trace))
	copy(out, r.trace)
	return out
}

// WithTraceNote appends a note to the collection-trace. Allowed even on a
// sealed resource: trace is diagnostic metadata, not content.
func (r *Resource) WithTraceNote(note string) { r.trace = append(r.trace, note) }

// Tag reports whether t is set on the resource.
func (r *Resource) Tag(t Tag) bool { return r.tags[t] }

// SetTag sets t on the resource. Rejects tags outside AllowedTags.
func (r *Resource) SetTag(t Tag) error {
	if !AllowedTags[t] {
		return engerr.New(engerr.InvalidArgument, "Resource.SetTag", "unknown tag: "+string(t))
	}
	if r.sealed {
		return engerr.New(engerr.InvalidState, "Resource.SetTag", "resource is sealed")
	}
	if r.tags == nil {
		r.tags = map[Tag]bool{}
	}
	r.tags[t] = true
	return nil
}

// ClearTag removes t from the resource.
func (r *Resource) ClearTag(t Tag) error {
	if r.sealed {
		return engerr.New(engerr.InvalidState, "Resource.ClearTag", "resource is sealed")
	}
	delete(r.tags, t)
	return nil
}

// Tags returns a snapshot of the set tags.
func (r *Resource) Tags() map[Tag]bool {
	out := make(map[Tag]bool, len(r.tags))
	for k, v := range r.tags {
		out[k] = v
	}
	return out
}

// Clone produces an independent, unsealed copy of the resource at the same
// path, content already materialized.
func (r *Resource) Clone() (*Resource, error) {
	b, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	clone := New(r.path, cp, r.project)
	clone.modTime = r.modTime
	clone.trace = append([]string(nil), r.trace...)
	clone.tags = r.Tags()
	return clone, nil
}
