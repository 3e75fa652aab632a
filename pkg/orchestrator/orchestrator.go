// Package orchestrator implements the build orchestrator of spec §4.5: the
// top-level entry point that composes the project list, runs the project
// driver, writes final results, and serializes cache state. It is the
// glue between pkg/project (ordering + events), pkg/stage (per-task
// execution and caching) and pkg/tasks (the external task registry).
package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgebuild/engine/pkg/buildsig"
	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/events"
	"github.com/forgebuild/engine/pkg/manifest"
	"github.com/forgebuild/engine/pkg/metrics"
	"github.com/forgebuild/engine/pkg/project"
	"github.com/forgebuild/engine/pkg/resource"
	"github.com/forgebuild/engine/pkg/stage"
	"github.com/forgebuild/engine/pkg/tasks"
	"github.com/forgebuild/engine/pkg/vfs"
)

// OutputStyle is the buildConfig.outputStyle enum of spec §4.5.
type OutputStyle string

const (
	OutputDefault   OutputStyle = "Default"
	OutputNamespace OutputStyle = "Namespace"
	OutputFlat      OutputStyle = "Flat"
)

// BuildConfig is the enumerated build-config surface of spec §4.5.
type BuildConfig struct {
	SelfContained       bool
	OutputStyle         OutputStyle
	CSSVariables        bool
	JSDoc               bool
	CreateBuildManifest bool
	IncludedTasks       []string
	ExcludedTasks       []string
	UseWorkers          bool
}

// normalize applies the "selfContained disables createBuildManifest" rule
// and returns the effective config a build actually runs with.
func (c BuildConfig) normalize() BuildConfig {
	if c.SelfContained {
		c.CreateBuildManifest = false
	}
	return c
}

// validate rejects config/project-type combinations spec §4.5 forbids.
func (c BuildConfig) validate(projectType string) error {
	if c.OutputStyle == OutputFlat {
		if projectType == "theme-library" || projectType == "module" {
			return engerr.New(engerr.InvalidConfiguration, "BuildConfig.validate", "Flat output style is not supported for theme-library or module projects")
		}
		if c.CreateBuildManifest {
			return engerr.New(engerr.InvalidConfiguration, "BuildConfig.validate", "createBuildManifest cannot be combined with Flat output style")
		}
	}
	if c.CreateBuildManifest {
		switch projectType {
		case "application", "module":
			return engerr.New(engerr.InvalidConfiguration, "BuildConfig.validate", "createBuildManifest is not supported for "+projectType+" projects")
		}
	}
	return nil
}

// filterTasks applies the additive includedTasks/excludedTasks filters
// over the registry's declared task order for a project type.
func (c BuildConfig) filterTasks(order []string) []string {
	var included map[string]bool
	if len(c.IncludedTasks) > 0 {
		included = make(map[string]bool, len(c.IncludedTasks))
		for _, t := range c.IncludedTasks {
			included[t] = true
		}
	}
	excluded := make(map[string]bool, len(c.ExcludedTasks))
	for _, t := range c.ExcludedTasks {
		excluded[t] = true
	}

	out := make([]string, 0, len(order))
	for _, id := range order {
		if included != nil && !included[id] {
			continue
		}
		if excluded[id] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// style returns the write-out reader style for this config, per spec
// §4.5: dist by default, buildtime when a build manifest is being
// emitted, flat when outputStyle is Flat.
func (c BuildConfig) style() stage.Style {
	switch {
	case c.OutputStyle == OutputFlat:
		return stage.StyleFlat
	case c.CreateBuildManifest:
		return stage.StyleBuildtime
	default:
		return stage.StyleDist
	}
}

// Target describes one buildToTarget invocation.
type Target struct {
	DestPath  string
	Filter    project.Filter
	CleanDest bool
	Config    BuildConfig
}

// Orchestrator is the build engine's top-level entry point. Construct one
// per build (or one long-lived instance for Serve).
type Orchestrator struct {
	Projects    map[string]*project.Project
	Registry    tasks.Registry
	Bus         *events.Bus
	Metrics     *metrics.Metrics
	Log         *slog.Logger
	Persistence *stage.Persistence
	TaskUtilFor func(p *project.Project, bc *stage.BuildContext) tasks.TaskUtil

	mu       sync.Mutex
	contexts map[string]*stage.BuildContext
}

// rootProject returns the project marked as the build's top-level target.
func (o *Orchestrator) rootProject() (*project.Project, error) {
	for _, p := range o.Projects {
		if p.RootProject {
			return p, nil
		}
	}
	return nil, engerr.New(engerr.InvalidArgument, "Orchestrator.rootProject", "no root project in project graph")
}

// BuildToTarget runs a full build and writes the root project's result to
// t.DestPath, per spec §4.5.
func (o *Orchestrator) BuildToTarget(ctx context.Context, t Target) error {
	if t.DestPath == "" {
		return engerr.New(engerr.InvalidArgument, "Orchestrator.BuildToTarget", "destPath is required")
	}
	if err := t.Filter.Validate(); err != nil {
		return err
	}

	cfg := t.Config.normalize()
	for _, p := range o.Projects {
		if err := cfg.validate(p.Type); err != nil {
			return err
		}
	}

	root, err := o.rootProject()
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.contexts = map[string]*stage.BuildContext{}
	o.mu.Unlock()

	runID := uuid.NewString()
	if o.Bus != nil {
		o.Bus.Publish(events.Event{Name: events.BuildMetadata, RunID: runID, Level: events.LevelInfo})
	}

	d := &project.Driver{
		Projects: o.Projects,
		Bus:      o.Bus,
		RunID:    runID,
		Run:      o.runProject(runID, cfg),
	}
	buildErr := d.Build(ctx)

	if o.Bus != nil {
		status := "succeeded"
		lvl := events.LevelInfo
		if buildErr != nil {
			status = "failed"
			lvl = events.LevelError
		}
		o.Bus.Publish(events.Event{Name: events.BuildStatus, RunID: runID, Level: lvl, Payload: status})
	}
	if buildErr != nil {
		return buildErr
	}

	if t.CleanDest {
		if err := os.RemoveAll(t.DestPath); err != nil {
			return engerr.Wrap(engerr.InvalidState, "Orchestrator.BuildToTarget", err)
		}
	}
	if err := os.MkdirAll(t.DestPath, 0o755); err != nil {
		return engerr.Wrap(engerr.InvalidState, "Orchestrator.BuildToTarget", err)
	}

	o.mu.Lock()
	bc := o.contexts[root.Name]
	o.mu.Unlock()
	if bc == nil {
		return engerr.New(engerr.InvalidState, "Orchestrator.BuildToTarget", "no build context recorded for root project "+root.Name)
	}

	return o.writeResult(ctx, root, bc, cfg, t.DestPath)
}

// possiblyRequiresBuild reports whether any task's persisted cache entry
// fails to validate — i.e. whether the project needs to run at all. It
// reuses the same change-detection logic Manager.RunProject later applies
// per stage, so a project with zero invalidated tasks never calls
// Manager.RunProject,
// satisfying spec §8 scenario 2 ("warm build, no source changes: zero
// buildProject invocations").
func possiblyRequiresBuild(ctx context.Context, m *stage.Manager, bc *stage.BuildContext, prep *stage.Prepared, taskIDs []string) bool {
	if len(prep.Nodes) != len(taskIDs) {
		return true
	}
	for _, id := range taskIDs {
		if _, ok := prep.Nodes[id]; !ok {
			return true
		}
	}
	return !m.AllValid(ctx, bc, prep, taskIDs)
}

// runProject returns the project.ProjectRunner the driver invokes for
// every project in dependency order: resolve the task order, load any
// prior cache, decide whether the project can be skipped wholesale, and
// otherwise drive pkg/stage through every task.
func (o *Orchestrator) runProject(runID string, cfg BuildConfig) project.ProjectRunner {
	return func(ctx context.Context, p *project.Project) error {
		order, err := o.Registry.TasksForProjectType(p.Type)
		if err != nil {
			return err
		}
		taskIDs := cfg.filterTasks(order)

		sig := buildsig.Compute(buildsig.Input{
			ProjectName:      p.Name,
			ProjectVersion:   p.Version,
			TaskIDs:          taskIDs,
			TaskConfigs:      sharedTaskConfig(taskIDs, cfg),
			RegistryVersions: o.Registry.Versions(),
		})

		if o.Bus != nil {
			o.Bus.Publish(events.Event{Name: events.ProjectBuildMetadata, RunID: runID, Project: p.Name, Type: p.Type, Level: events.LevelInfo})
		}

		prep, err := o.Persistence.Load(ctx, o.Log, p.Name, sig)
		if err != nil {
			return err
		}
		defer func() {
			if prep.Lock != nil {
				_ = prep.Lock.Release()
			}
		}()

		sourceReaders, err := stage.SourceReaders(ctx, p)
		if err != nil {
			return err
		}
		bc := stage.NewBuildContext(p, sig, taskIDs, sourceReaders)

		m := &stage.Manager{Metrics: o.Metrics, Log: o.Log, Bus: o.Bus, Style: cfg.style(), RunID: runID}

		if !possiblyRequiresBuild(ctx, m, bc, prep, taskIDs) {
			if o.Bus != nil {
				o.Bus.Publish(events.Event{Name: events.ProjectBuildStatus, RunID: runID, Project: p.Name, Type: p.Type, Status: events.ProjectSkip, Level: events.LevelInfo})
			}
			bc.DAG = prep.DAG
			for idx, id := range taskIDs {
				node := prep.Nodes[id]
				_ = bc.UseStage(idx)
				bc.Stages[idx].Writer = nil
				bc.Stages[idx].CachedWriter = node.Reader()
			}
			o.storeContext(p.Name, bc)
			return nil
		}

		util := tasks.TaskUtil(nil)
		if o.TaskUtilFor != nil {
			util = o.TaskUtilFor(p, bc)
		}

		taskOf := func(id string) (tasks.Task, bool) { return o.Registry.Task(id) }
		if err := m.RunProject(ctx, bc, o.Persistence, prep, taskIDs, taskOf, util); err != nil {
			return err
		}

		o.storeContext(p.Name, bc)
		return nil
	}
}

func (o *Orchestrator) storeContext(name string, bc *stage.BuildContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.contexts[name] = bc
}

// sharedTaskConfig is a stand-in for per-task config payload hashing: the
// real task registry owns each task's actual configuration, which is out
// of this engine's scope (spec §1), so every task id is keyed to the same
// serialized BuildConfig. A registry with real per-task config can satisfy
// buildsig.Input.TaskConfigs directly; this is only the orchestrator's
// default wiring.
func sharedTaskConfig(taskIDs []string, cfg BuildConfig) map[string][]byte {
	b, _ := json.Marshal(cfg)
	out := make(map[string][]byte, len(taskIDs))
	for _, id := range taskIDs {
		out[id] = b
	}
	return out
}

// writeResult iterates the root project's composed result tree and writes
// every non-OmitFromBuildResult resource to destPath, per spec §4.3
// "Result write-out". When cfg.CreateBuildManifest is set, a manifest is
// composed and written to .forgebuild/build-manifest.json after the
// resources.
func (o *Orchestrator) writeResult(ctx context.Context, p *project.Project, bc *stage.BuildContext, cfg BuildConfig, destPath string) error {
	bc.UseResultStage()
	reader := bc.GetReader(cfg.style())

	resources, err := reader.ByGlob(ctx, "**/*", vfs.DefaultGlobOptions)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, r := range resources {
		if r.Tag(resource.OmitFromBuildResult) {
			continue
		}
		rel := filepath.FromSlash(vfs.Normalize(r.Path()))
		if seen[rel] {
			return engerr.New(engerr.InvalidState, "Orchestrator.writeResult", "duplicate write to "+r.Path()+" in one build")
		}
		seen[rel] = true

		dest := filepath.Join(destPath, rel)
		data, err := r.Bytes()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return engerr.Wrap(engerr.InvalidState, "Orchestrator.writeResult", err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return engerr.Wrap(engerr.InvalidState, "Orchestrator.writeResult", err)
		}
	}

	if cfg.CreateBuildManifest {
		mf := o.buildManifest(p, bc, cfg)
		b, err := json.MarshalIndent(mf, "", "  ")
		if err != nil {
			return engerr.Wrap(engerr.InvalidState, "Orchestrator.writeResult", err)
		}
		dest := filepath.Join(destPath, ".forgebuild", "build-manifest.json")
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return engerr.Wrap(engerr.InvalidState, "Orchestrator.writeResult", err)
		}
		if err := os.WriteFile(dest, b, 0o644); err != nil {
			return engerr.Wrap(engerr.InvalidState, "Orchestrator.writeResult", err)
		}
	}
	return nil
}

func (o *Orchestrator) buildManifest(p *project.Project, bc *stage.BuildContext, cfg BuildConfig) *manifest.BuildManifest {
	mf := manifest.New()
	mf.Timestamp = time.Now().UTC().Format(time.RFC3339)
	mf.BuildSignature = bc.Signature.String()
	mf.Version = p.Version
	mf.Namespace = p.Namespace

	versions := o.Registry.Versions()
	sort.Slice(versions, func(i, j int) bool { return versions[i].Name < versions[j].Name })
	for _, v := range versions {
		mf.Versions[v.Name] = v.Version
	}

	cfgBytes, _ := json.Marshal(cfg)
	var cfgMap map[string]any
	_ = json.Unmarshal(cfgBytes, &cfgMap)
	mf.BuildConfig = cfgMap

	return mf
}
