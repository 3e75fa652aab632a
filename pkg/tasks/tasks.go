// Package tasks defines the external task contract the engine drives but
// does not itself implement (spec §6): the per-task function signature and
// the util handed to it for tag/project/dependency access, plus a minimal
// in-memory Registry good enough to drive the project driver and the CLI's
// default wiring. The concrete tasks a real build runs (bundling, minifying,
// theming, and so on) are a collaborator outside this engine's scope.
package tasks

import (
	"context"
	"sort"
	"sync"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/resource"
	"github.com/forgebuild/engine/pkg/vfs"
)

// StandardTag names the fixed tag vocabulary a task may set on a resource.
type StandardTag = resource.Tag

// StandardTags mirrors resource.AllowedTags for task code that only has
// this package imported.
var StandardTags = struct {
	IsDebugVariant      StandardTag
	HasDebugVariant     StandardTag
	OmitFromBuildResult StandardTag
	IsBundle            StandardTag
}{
	IsDebugVariant:      resource.IsDebugVariant,
	HasDebugVariant:     resource.HasDebugVariant,
	OmitFromBuildResult: resource.OmitFromBuildResult,
	IsBundle:            resource.IsBundle,
}

// TaskUtil is the collaborator handed to every Task invocation.
type TaskUtil interface {
	// GetTag/SetTag operate on the standard tag vocabulary, scoped to the
	// task's own project.
	GetTag(r *resource.Resource, tag StandardTag) bool
	SetTag(r *resource.Resource, tag StandardTag) error

	// GetProject returns the name of the project this task runs for.
	GetProject() string
	// GetDependencies returns the names of the project's declared
	// dependencies, in declaration order.
	GetDependencies() []string

	// RegisterCleanup queues fn to run after the build finishes, success or
	// failure, in LIFO order (last registered, first run) — mirroring
	// defer semantics for resources a task opens that must not outlive it.
	RegisterCleanup(fn func())

	// IsRootProject reports whether this task is running for the build's
	// top-level target project rather than one of its dependencies.
	IsRootProject() bool
}

// Task is the function signature every build step implements: given a
// workspace to read from and write to and a util for project/tag access, do
// the task's work and return an error on failure.
type Task func(ctx context.Context, workspace *vfs.Workspace, util TaskUtil) error

// ComponentVersion names one versioned piece of the task registry, folded
// into the build signature (pkg/buildsig) so a registry upgrade invalidates
// stale caches.
type ComponentVersion struct {
	Name    string
	Version string
}

// Registry is the external collaborator exposing which tasks a project
// type runs, and in what order. The orchestrator calls all three methods:
// Versions for the build signature, TasksForProjectType for a project's task
// order, and Task to resolve each task id; task content and
// per-project-type ordering tables are this registry's own concern.
type Registry interface {
	Versions() []ComponentVersion
	TasksForProjectType(projectType string) ([]string, error)
	Task(id string) (Task, bool)
}

// MemRegistry is a minimal in-memory Registry, enough to drive the project
// driver's tests and the CLI's default wiring.
type MemRegistry struct {
	mu       sync.RWMutex
	versions []ComponentVersion
	order    map[string][]string
	tasks    map[string]Task
}

// NewMemRegistry returns an empty, mutable in-memory Registry.
func NewMemRegistry() *MemRegistry {
	return &MemRegistry{
		order: map[string][]string{},
		tasks: map[string]Task{},
	}
}

// Register adds or replaces the task identified by id.
func (r *MemRegistry) Register(id string, t Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = t
}

// SetOrder fixes the ordered task-id list run for a given project type.
func (r *MemRegistry) SetOrder(projectType string, taskIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order[projectType] = append([]string(nil), taskIDs...)
}

// SetVersions fixes the component version list folded into the build
// signature.
func (r *MemRegistry) SetVersions(v []ComponentVersion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions = append([]ComponentVersion(nil), v...)
}

func (r *MemRegistry) Versions() []ComponentVersion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]ComponentVersion(nil), r.versions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *MemRegistry) TasksForProjectType(projectType string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.order[projectType]
	if !ok {
		return nil, engerr.New(engerr.InvalidConfiguration, "Registry.TasksForProjectType", "no task order registered for project type "+projectType)
	}
	return append([]string(nil), order...), nil
}

func (r *MemRegistry) Task(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}
