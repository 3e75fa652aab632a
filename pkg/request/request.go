// Package request implements the Request/RequestSet value types of spec §3:
// the recorded identity of "what a task asked a workspace for", used as the
// sole key by which the resource-request DAG (pkg/reqdag) decides whether a
// prior task's output can be reused.
package request

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Type distinguishes a single-path request from a glob-pattern request.
type Type string

const (
	TypePath     Type = "path"
	TypePatterns Type = "patterns"
)

// Request is a single tagged value recorded by a monitor: either a concrete
// path asked of byPath, or a list of glob patterns asked of byGlob.
type Request struct {
	Type     Type
	Path     string   // set when Type == TypePath
	Patterns []string // set when Type == TypePatterns
}

// NewPath builds a path-kind Request.
func NewPath(p string) Request { return Request{Type: TypePath, Path: p} }

// NewPatterns builds a patterns-kind Request. The pattern list is copied and
// is not required to be pre-sorted; NewPatterns sorts the copy, so Key()
// (which encodes Patterns in stored order) and therefore findExactMatch are
// insensitive to the order patterns were requested in.
func NewPatterns(patterns []string) Request {
	cp := append([]string(nil), patterns...)
	sort.Strings(cp)
	return Request{Type: TypePatterns, Patterns: cp}
}

// Key returns the canonical identity string for this request: "<type>:<value>",
// with the patterns value serialized as a compact JSON array literal. Key is
// the sole identity used by the DAG — two Requests with equal Key are
// considered the same request regardless of field layout.
func (r Request) Key() string {
	switch r.Type {
	case TypePath:
		return fmt.Sprintf("%s:%s", TypePath, r.Path)
	case TypePatterns:
		b, _ := json.Marshal(r.Patterns)
		return fmt.Sprintf("%s:%s", TypePatterns, string(b))
	default:
		return fmt.Sprintf("%s:", r.Type)
	}
}

// Equal reports whether a and b are the same request (same type, same
// structural value).
func Equal(a, b Request) bool { return a.Key() == b.Key() }

// Set is an unordered collection of Request, identified entirely by the set
// of Key() strings it contains.
type Set map[string]Request

// NewSet builds a Set from the given requests, deduplicating by Key.
func NewSet(reqs ...Request) Set {
	s := make(Set, len(reqs))
	for _, r := range reqs {
		s[r.Key()] = r
	}
	return s
}

// Add inserts r into the set (a no-op if an equal request is already present).
func (s Set) Add(r Request) { s[r.Key()] = r }

// Keys returns the set's identity keys in sorted order (for deterministic
// serialization and comparison).
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether s and other contain exactly the same requests,
// comparing only by key (per spec, "order within requests is irrelevant").
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// IsSubsetOf reports whether every request in s also appears in other.
func (s Set) IsSubsetOf(other Set) bool {
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Union returns a new Set containing every request in s or other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Subtract returns a new Set containing the requests in s whose key is not
// present in other.
func (s Set) Subtract(other Set) Set {
	out := make(Set, len(s))
	for k, v := range s {
		if _, ok := other[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Len returns the number of requests in the set.
func (s Set) Len() int { return len(s) }
