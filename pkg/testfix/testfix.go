// Package testfix provides in-memory fixture builders shared across the
// engine's package tests: a scratch reader preloaded with named resources
// and a minimal project graph, so individual package tests don't each
// reinvent the same billy/memfs boilerplate. Grounded in the teacher's own
// testing helpers (knative.dev/func/pkg/functions/function_testdata.go
// style inline fixture construction), adapted here into one shared helper
// package since this engine's test surface spans many packages operating
// on the same resource/project shapes.
package testfix

import (
	"context"

	"github.com/forgebuild/engine/pkg/project"
	"github.com/forgebuild/engine/pkg/resource"
	"github.com/forgebuild/engine/pkg/vfs"
)

// Reader builds a read-only vfs.Reader over the given path -> content
// pairs, all tagged with project name proj.
func Reader(proj string, files map[string]string) vfs.Reader {
	w := vfs.NewMemWriter(proj)
	ctx := context.Background()
	for path, content := range files {
		r := resource.New(path, []byte(content), proj)
		if err := w.Write(ctx, r); err != nil {
			panic(err)
		}
	}
	return w
}

// Resources builds the given path -> content pairs as a resource slice,
// without a backing reader.
func Resources(proj string, files map[string]string) []*resource.Resource {
	out := make([]*resource.Resource, 0, len(files))
	for path, content := range files {
		out = append(out, resource.New(path, []byte(content), proj))
	}
	return out
}

// Project builds a minimal project.Project named name, of type
// "application", with the given dependencies. Callers needing a
// non-default Type/Namespace/SourceDir should set those fields on the
// returned value directly.
func Project(name string, deps ...string) *project.Project {
	return &project.Project{
		Name:         name,
		Version:      "0.0.0",
		Type:         "application",
		Namespace:    name,
		Dependencies: deps,
	}
}

// RootProject is Project with RootProject set, for the one target a
// BuildToTarget call writes out.
func RootProject(name string, deps ...string) *project.Project {
	p := Project(name, deps...)
	p.RootProject = true
	return p
}

// Graph builds a map[string]*project.Project keyed by name, ready to hand
// to project.Order or an Orchestrator.Projects field.
func Graph(projects ...*project.Project) map[string]*project.Project {
	out := make(map[string]*project.Project, len(projects))
	for _, p := range projects {
		out[p.Name] = p
	}
	return out
}
