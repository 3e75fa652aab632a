// Package engerr implements the engine's error taxonomy: a small, closed set
// of error kinds that every component returns so callers can tell recoverable
// conditions (NotFound, CacheCorruption) from ones that must abort a build
// (TaskFailure, InvalidConfiguration).
package engerr

import "fmt"

// Kind classifies an Error. See the package doc for the taxonomy.
type Kind int

const (
	// InvalidArgument indicates a missing or conflicting parameter supplied
	// at a public entry point (e.g. orchestrator.BuildToTarget).
	InvalidArgument Kind = iota
	// InvalidState indicates an operation performed on a component in a
	// state that forbids it: reading a sealed monitor, using a workspace
	// after useResultStage, changing a facade's path.
	InvalidState
	// NotFound indicates a resource absent from a pool or reader.
	NotFound
	// InvalidConfiguration indicates a build-config combination that is
	// not supported (e.g. Flat output for a module project).
	InvalidConfiguration
	// CacheCorruption indicates on-disk cache state that could not be
	// trusted; recoverable by discarding the cache and building cold.
	CacheCorruption
	// TaskFailure indicates a task itself returned an error; always
	// surfaced to the caller.
	TaskFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidState:
		return "InvalidState"
	case NotFound:
		return "NotFound"
	case InvalidConfiguration:
		return "InvalidConfiguration"
	case CacheCorruption:
		return "CacheCorruption"
	case TaskFailure:
		return "TaskFailure"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by engine components.
type Error struct {
	Kind Kind
	Op   string // component/operation that raised it, e.g. "vfs.Monitor.ByPath"
	Msg  string
	Err  error // optional wrapped cause
}

func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: err.Error(), Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, engerr.Sentinel(Kind)) match any *Error of the same
// Kind, independent of Op/Msg/Err, mirroring how the teacher's typed errors
// (ErrNotInitialized, ErrRuntimeNotRecognized, ...) are matched by type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" || t.Msg != "" || t.Err != nil {
		return false // a concrete error, not a Kind sentinel
	}
	return e.Kind == t.Kind
}

// Sentinel returns a bare *Error carrying only a Kind, suitable for use with
// errors.Is to test the kind of an arbitrary returned error:
//
//	if errors.Is(err, engerr.Sentinel(engerr.NotFound)) { ... }
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}
