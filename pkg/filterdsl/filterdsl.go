// Package filterdsl compiles the comma-separated resource-filter pattern
// language of spec §6: a list of glob patterns, each either an include
// (bare, or prefixed with "+") or an exclude (prefixed with "-" or "!"),
// evaluated in order against a candidate path with "last matching rule
// wins" semantics — the same sequential, stateful flip-decision approach
// gitignore-style tools use, but no off-the-shelf library implements the
// comma-separated dual-prefix syntax itself, so that stateful evaluation is
// engine code here while the underlying single-pattern glob test is
// delegated to moby/patternmatcher (the same dependency pkg/vfs's readers
// use for glob matching, so the engine only carries one glob implementation).
package filterdsl

import (
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/forgebuild/engine/pkg/engerr"
)

// Rule is one compiled entry of the filter expression.
type Rule struct {
	Include bool
	Pattern string
}

// Filter is a compiled resource-filter expression.
type Filter struct {
	Rules []Rule
	// RequiresPostFiltering is true when the filter contains at least one
	// exclude rule, meaning the result cannot be produced by a single
	// additive glob and the candidate set must be enumerated then filtered.
	RequiresPostFiltering bool
}

// Compile parses a comma-separated filter expression into a Filter.
// Each entry:
//   - "-pattern" or "!pattern" is an exclude rule
//   - "+pattern" or "pattern" (no prefix) is an include rule
//   - a pattern ending in "/" is expanded to "pattern**/*" (select everything
//     under that directory)
func Compile(expr string) (*Filter, error) {
	parts := strings.Split(expr, ",")
	f := &Filter{}
	for _, raw := range parts {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		include := true
		switch {
		case strings.HasPrefix(raw, "-"):
			include = false
			raw = raw[1:]
		case strings.HasPrefix(raw, "!"):
			include = false
			raw = raw[1:]
		case strings.HasPrefix(raw, "+"):
			include = true
			raw = raw[1:]
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, engerr.New(engerr.InvalidArgument, "filterdsl.Compile", "empty pattern in filter expression")
		}

		if strings.HasSuffix(raw, "/") {
			raw = raw + "**/*"
		}

		if _, err := patternmatcher.New([]string{raw}); err != nil {
			return nil, engerr.Wrap(engerr.InvalidArgument, "filterdsl.Compile", err)
		}

		f.Rules = append(f.Rules, Rule{Include: include, Pattern: raw})
		if !include {
			f.RequiresPostFiltering = true
		}
	}
	return f, nil
}

// Matches reports whether path is selected by the filter: rules are
// evaluated in order, each matching rule setting the running decision to
// its own sign. The decision starts true (everything included) when the
// filter has no include rule, so a filter expression made only of excludes
// behaves as a blacklist; it starts false as soon as the filter has an
// include rule, so a filter expression that opens with an include narrows
// down from there.
func (f *Filter) Matches(path string) (bool, error) {
	path = strings.TrimPrefix(path, "/")
	decision := true
	for _, r := range f.Rules {
		if r.Include {
			decision = false
			break
		}
	}
	for _, r := range f.Rules {
		ok, err := patternmatcher.Matches(path, []string{r.Pattern})
		if err != nil {
			return false, engerr.Wrap(engerr.InvalidArgument, "Filter.Matches", err)
		}
		if ok {
			decision = r.Include
		}
	}
	return decision, nil
}

// FilterPaths applies Matches to every candidate, returning the selected
// subset in stable order.
func (f *Filter) FilterPaths(candidates []string) ([]string, error) {
	var out []string
	for _, c := range candidates {
		ok, err := f.Matches(c)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}
