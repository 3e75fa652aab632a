// Package project implements the project graph driver of spec §4.4: a
// project's metadata, a build context carrying read/write access to that
// project's workspace, a resource filter honoring the dependencyIncludes /
// explicit-include-exclude mutual exclusivity rule, and a Driver that walks
// a project's dependencies in build order. Dependency ordering uses Kahn's
// algorithm, the same construction the pack's evalgo-org-eve/graph package
// uses for action scheduling, with ties broken by sorting project names for
// determinism.
package project

import (
	"sort"

	"github.com/forgebuild/engine/pkg/engerr"
)

// Project is one node of the dependency graph: a name, its declared
// dependency names, and its project type (used to look up the task order
// to run for it).
type Project struct {
	Name         string
	Version      string
	Type         string
	Namespace    string // defaults to Name; used to project paths under /resources/<ns>/
	SourceDir    string // on-disk root of this project's sources
	GitURL       string // remote URL to clone sources from instead of SourceDir; mutually exclusive with SourceDir
	GitRef       string // branch to check out; empty means the remote's default branch
	Dependencies []string
	RootProject  bool
}

// Filter names which projects of the graph a build covers. At most one of
// DependencyIncludes or (ExplicitIncludes/ExplicitExcludes) may be set —
// combining both is a configuration error, since they are mutually
// exclusive selection strategies in spec §4.4. Validate is the only check
// made on a Filter: Orchestrator.BuildToTarget calls it and then builds
// every project in the graph, so a Filter does not narrow the set of
// projects that are built.
type Filter struct {
	DependencyIncludes []string
	ExplicitIncludes   []string
	ExplicitExcludes   []string
}

// Validate enforces the mutual-exclusivity rule.
func (f Filter) Validate() error {
	hasDepIncludes := len(f.DependencyIncludes) > 0
	hasExplicit := len(f.ExplicitIncludes) > 0 || len(f.ExplicitExcludes) > 0
	if hasDepIncludes && hasExplicit {
		return engerr.New(engerr.InvalidArgument, "Filter.Validate",
			"dependencyIncludes cannot be combined with explicitIncludes/explicitExcludes")
	}
	return nil
}

// Order returns the project names in dependency-first build order
// (projects with no unresolved dependencies first), using Kahn's
// algorithm. Ties among projects with the same in-degree are broken by
// sorting their names, so the result is deterministic across runs.
//
// A dependency on a name not present in projects is rejected with an
// InvalidArgument error naming it; a dependency cycle is rejected with a
// separate InvalidArgument error.
func Order(projects map[string]*Project) ([]string, error) {
	inDegree := make(map[string]int, len(projects))
	dependents := make(map[string][]string, len(projects))
	for name := range projects {
		inDegree[name] = 0
	}
	for name, p := range projects {
		for _, dep := range p.Dependencies {
			if _, ok := projects[dep]; !ok {
				return nil, engerr.New(engerr.InvalidArgument, "project.Order",
					"project "+name+" depends on unknown project "+dep)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var newlyReady []string
		for _, dependent := range dependents[n] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sort.Strings(newlyReady)
		ready = append(ready, newlyReady...)
	}

	if len(order) != len(projects) {
		var cyclic string
		for name, deg := range inDegree {
			if deg > 0 {
				cyclic = name
				break
			}
		}
		return nil, engerr.New(engerr.InvalidArgument, "project.Order",
			"dependency cycle detected involving project "+cyclic)
	}
	return order, nil
}
