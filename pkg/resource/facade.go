package resource

import (
	"time"

	"github.com/forgebuild/engine/pkg/engerr"
)

// Facade is a path-overriding view onto a concealed Resource: every
// operation forwards to the concealed resource except the path itself,
// which the facade supplies. Setting a facade's path is always rejected —
// a facade exists precisely to pin an alternate path onto shared content.
type Facade struct {
	path    string
	concealed *Resource
}

// NewFacade creates a Facade exposing path in place of concealed's own path.
func NewFacade(path string, concealed *Resource) *Facade {
	return &Facade{path: path, concealed: concealed}
}

// Path returns the facade's own (overridden) path.
func (f *Facade) Path() string { return f.path }

// OriginalPath returns the concealed resource's real path.
func (f *Facade) OriginalPath() string { return f.concealed.Path() }

// SetPath always fails: a facade's path is fixed at construction.
func (f *Facade) SetPath(string) error {
	return engerr.New(engerr.InvalidState, "Facade.SetPath", "cannot set path on a facade")
}

func (f *Facade) Project() string       { return f.concealed.Project() }
func (f *Facade) SizeKnown() bool       { return f.concealed.SizeKnown() }
func (f *Facade) Size() int64          { return f.concealed.Size() }
func (f *Facade) ModTime() time.Time   { return f.concealed.ModTime() }
func (f *Facade) Bytes() ([]byte, error) { return f.concealed.Bytes() }

// SetBytes writes through to the concealed resource, per spec ("Writes
// through a facade go to the concealed resource").
func (f *Facade) SetBytes(b []byte) error { return f.concealed.SetBytes(b) }

func (f *Facade) Integrity() (string, error) { return f.concealed.Integrity() }
func (f *Facade) Tag(t Tag) bool             { return f.concealed.Tag(t) }
func (f *Facade) SetTag(t Tag) error         { return f.concealed.SetTag(t) }
func (f *Facade) Sealed() bool               { return f.concealed.Sealed() }

// Clone materializes a real, independent Resource carrying the facade's
// path rather than the concealed resource's path.
func (f *Facade) Clone() (*Resource, error) {
	clone, err := f.concealed.Clone()
	if err != nil {
		return nil, err
	}
	// Clone() above already produced an unsealed, independent resource;
	// override its path to the facade's, bypassing SetPath's immutability
	// rules (the clone is not itself a facade).
	clone.path = f.path
	return clone, nil
}

// Concealed returns the wrapped resource, for callers that need to resolve
// through a chain of facades (e.g. Reader implementations deduplicating by
// original identity).
func (f *Facade) Concealed() *Resource { return f.concealed }
