// Package stage implements the stage & cache manager of spec §4.3: each
// project build context owns one Stage per task, materializing that
// task's output as a separately addressable overlay and reusing it across
// runs when the resource-request DAG shows the recorded request set still
// yields identical content.
//
// The per-stage live/replayed duality (Stage.Writer vs Stage.CachedWriter)
// and the reverse-order reader composition mirror the teacher's layered
// knative.dev/func/pkg/filesystem composition, generalized from a
// read-only overlay to the build engine's write-once-per-task overlay
// stack.
package stage

import (
	"sync"

	"github.com/forgebuild/engine/pkg/buildsig"
	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/project"
	"github.com/forgebuild/engine/pkg/reqdag"
	"github.com/forgebuild/engine/pkg/vfs"
)

// Style is a reader projection style, per spec §4.1.
type Style string

const (
	StyleBuildtime Style = "buildtime"
	StyleDist      Style = "dist"
	StyleRuntime   Style = "runtime"
	StyleFlat      Style = "flat"
)

// Stage is a per-task output container. Exactly one of Writer or
// CachedWriter is set: Writer for a task about to run (or that just ran)
// live, CachedWriter for a task whose prior output was replayed from
// persisted cache instead of being re-executed.
type Stage struct {
	ID           string
	Writer       vfs.Writer
	CachedWriter vfs.Reader
}

// IsCached reports whether this stage's output was replayed rather than
// produced by a live task run.
func (s *Stage) IsCached() bool { return s.CachedWriter != nil }

// Reader returns the stage's output as a Reader, whichever form is active.
func (s *Stage) Reader() vfs.Reader {
	if s.CachedWriter != nil {
		return s.CachedWriter
	}
	return s.Writer
}

// BuildContext is the per-project state tracked across one build, per spec
// §3 "Project build context": the project's stages (one per task), the
// current active stage, cached readers/workspaces keyed by style, the
// build signature, the cleanup queue, and the request DAG this project's
// tasks record into.
type BuildContext struct {
	Project   *project.Project
	Signature buildsig.Signature
	Sources   map[Style]vfs.Reader // project source reader, by projection style
	Stages    []*Stage
	DAG       *reqdag.Graph

	mu             sync.Mutex
	activeIdx      int
	resultMode     bool
	readerCache    map[Style]*vfs.ReaderCollection
	workspaceCache map[Style]*vfs.Workspace
	cleanup        []func()
}

// NewBuildContext creates one empty (live, writer-backed) Stage per task id
// in taskIDs, in order.
func NewBuildContext(p *project.Project, sig buildsig.Signature, taskIDs []string, sources map[Style]vfs.Reader) *BuildContext {
	stages := make([]*Stage, len(taskIDs))
	for i, id := range taskIDs {
		stages[i] = &Stage{ID: id, Writer: vfs.NewMemWriter(p.Name)}
	}
	return &BuildContext{
		Project:        p,
		Signature:      sig,
		Sources:        sources,
		Stages:         stages,
		DAG:            reqdag.New(),
		readerCache:    map[Style]*vfs.ReaderCollection{},
		workspaceCache: map[Style]*vfs.Workspace{},
	}
}

// UseStage sets idx as the active stage: the read-index points at all
// *previous* stages (plus the project source), and the cached
// reader/workspace maps are cleared since they were computed against the
// previously active stage.
func (bc *BuildContext) UseStage(idx int) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if idx < 0 || idx >= len(bc.Stages) {
		return engerr.New(engerr.InvalidArgument, "BuildContext.UseStage", "stage index out of range")
	}
	bc.activeIdx = idx
	bc.resultMode = false
	bc.readerCache = map[Style]*vfs.ReaderCollection{}
	bc.workspaceCache = map[Style]*vfs.Workspace{}
	return nil
}

// UseResultStage unsets the current writer and points the read-index at
// every stage, including the last. GetWorkspace fails once this is active.
func (bc *BuildContext) UseResultStage() {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.resultMode = true
	bc.readerCache = map[Style]*vfs.ReaderCollection{}
	bc.workspaceCache = map[Style]*vfs.Workspace{}
}

// GetReader returns the cached, prioritized reader collection for style:
// [current stage's output (unless in result mode), every earlier stage's
// output in reverse order, the project's source reader for style].
func (bc *BuildContext) GetReader(style Style) *vfs.ReaderCollection {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if rc, ok := bc.readerCache[style]; ok {
		return rc
	}

	var readers []vfs.Reader
	upper := bc.activeIdx
	if bc.resultMode {
		upper = len(bc.Stages)
	} else if upper < len(bc.Stages) {
		readers = append(readers, bc.Stages[upper].Reader())
	}
	for i := upper - 1; i >= 0; i-- {
		readers = append(readers, bc.Stages[i].Reader())
	}
	if src, ok := bc.Sources[style]; ok {
		readers = append(readers, src)
	}

	rc := vfs.NewReaderCollection(readers...)
	bc.readerCache[style] = rc
	return rc
}

// GetWorkspace returns the cached read/write workspace for the currently
// active stage: its own writer plus every earlier stage and the project
// source as fallback readers. Fails once UseResultStage is active, or if
// the active stage has no live writer (its output was replayed).
func (bc *BuildContext) GetWorkspace(style Style) (*vfs.Workspace, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.resultMode {
		return nil, engerr.New(engerr.InvalidState, "BuildContext.GetWorkspace", "workspace unavailable once the result stage is active")
	}
	if ws, ok := bc.workspaceCache[style]; ok {
		return ws, nil
	}

	cur := bc.Stages[bc.activeIdx]
	if cur.Writer == nil {
		return nil, engerr.New(engerr.InvalidState, "BuildContext.GetWorkspace", "active stage has no live writer")
	}

	var fallback []vfs.Reader
	for i := bc.activeIdx - 1; i >= 0; i-- {
		fallback = append(fallback, bc.Stages[i].Reader())
	}
	if src, ok := bc.Sources[style]; ok {
		fallback = append(fallback, src)
	}

	ws := vfs.NewWorkspace(cur.Writer, fallback...)
	bc.workspaceCache[style] = ws
	return ws, nil
}

// ActiveStageIndex returns the currently active stage's index.
func (bc *BuildContext) ActiveStageIndex() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.activeIdx
}

// RegisterCleanup queues fn to run (LIFO) when the build context is torn
// down, success or failure.
func (bc *BuildContext) RegisterCleanup(fn func()) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.cleanup = append(bc.cleanup, fn)
}

// Cleanup runs every registered cleanup function, most recently registered
// first.
func (bc *BuildContext) Cleanup() {
	bc.mu.Lock()
	fns := append([]func(){}, bc.cleanup...)
	bc.cleanup = nil
	bc.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
