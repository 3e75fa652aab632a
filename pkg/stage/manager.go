package stage

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/events"
	"github.com/forgebuild/engine/pkg/metrics"
	"github.com/forgebuild/engine/pkg/reqdag"
	"github.com/forgebuild/engine/pkg/request"
	"github.com/forgebuild/engine/pkg/tasks"
	"github.com/forgebuild/engine/pkg/vfs"
)

// NodeMeta is the opaque metadata a Manager attaches to every DAG node it
// creates: the content hash of every resource the recorded request set
// resolved to at the time the node was created — the basis for change
// detection on a later run.
type NodeMeta struct {
	TaskID        string                `json:"taskId"`
	PathHashes    map[string]string     `json:"pathHashes"`
	PatternHashes map[string][]PathHash `json:"patternHashes"`
}

// PathHash pairs a resolved glob hit with its content hash at record time.
type PathHash struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// reqdagNode bundles a persisted node id, its replay reader (the stage's
// output directory on disk), and its metadata, so validate/runOne don't
// need to reach back into Persistence mid-task.
type reqdagNode struct {
	id     int64
	reader vfs.Reader
	meta   NodeMeta
}

// Reader returns the persisted node's replay reader (its stage output
// directory on disk).
func (n *reqdagNode) Reader() vfs.Reader { return n.reader }

// AllValid reports whether every task id in taskIDs has a persisted node
// in prep.Nodes that still validates against current content — the basis
// for the project driver's possiblyRequiresBuild() check (spec §4.4):
// when true, the whole project can be skipped without running any task.
func (m *Manager) AllValid(ctx context.Context, bc *BuildContext, prep *Prepared, taskIDs []string) bool {
	for idx, id := range taskIDs {
		node, ok := prep.Nodes[id]
		if !ok {
			return false
		}
		if err := bc.UseStage(idx); err != nil {
			return false
		}
		ok2, err := m.validate(ctx, bc, node)
		if err != nil || !ok2 {
			return false
		}
	}
	return true
}

// Manager drives stage execution and cache validation for one build: given
// a task's workspace, it decides whether a persisted node's request set
// still validates against current content (§4.3 "Cache validation per
// stage") and, if not, runs the task and records what it read.
type Manager struct {
	Metrics *metrics.Metrics
	Log     *slog.Logger
	Bus     *events.Bus
	Style   Style  // projection style used to compose each task's workspace
	RunID   string // correlates every event this Manager publishes to one build invocation
}

// RunProject drives every task of bc in order against prep (the loaded or
// empty prior cache), replaying stages whose recorded request set still
// validates and executing the rest. taskOf resolves a task id to its
// Task function (the external task registry's concern, per spec §6);
// util is the TaskUtil handed to every task invocation. On return, the
// updated DAG and task-id -> node-id map have been persisted to prep.Dir.
func (m *Manager) RunProject(ctx context.Context, bc *BuildContext, p *Persistence, prep *Prepared, taskIDs []string, taskOf func(string) (tasks.Task, bool), util tasks.TaskUtil) error {
	bc.DAG = prep.DAG
	sm := stageMap{}

	for idx, id := range taskIDs {
		if err := ctx.Err(); err != nil {
			return engerr.Wrap(engerr.InvalidState, "Manager.RunProject", err)
		}

		task, ok := taskOf(id)
		if !ok {
			return engerr.New(engerr.InvalidConfiguration, "Manager.RunProject", "no task registered for id "+id)
		}

		nodeID, hit, err := m.runOne(ctx, bc, idx, prep.Nodes[id], task, util)
		if err != nil {
			return err
		}
		sm[id] = reqdag.NodeID(nodeID)

		if !hit {
			if err := p.SaveStageOutput(ctx, prep.Dir, id, bc.Stages[idx].Writer); err != nil {
				return err
			}
		}
	}

	return p.SaveDAG(prep.Dir, bc.DAG, sm)
}

// runOne executes (or replays) stage idx. Returns the DAG node id now
// associated with this task (either the persisted one that was revalidated
// or a freshly recorded one) and whether it was served from cache.
func (m *Manager) runOne(ctx context.Context, bc *BuildContext, idx int, persisted *reqdagNode, run tasks.Task, util tasks.TaskUtil) (int64, bool, error) {
	if err := bc.UseStage(idx); err != nil {
		return 0, false, err
	}
	taskID := bc.Stages[idx].ID

	if persisted != nil {
		ok, err := m.validate(ctx, bc, persisted)
		if err != nil {
			return 0, false, err
		}
		if ok {
			bc.Stages[idx].Writer = nil
			bc.Stages[idx].CachedWriter = persisted.reader
			m.publish(bc, taskID, events.TaskSkip)
			m.bump(bc.Project.Name, taskID, true)
			return persisted.id, true, nil
		}
	}

	m.publish(bc, taskID, events.TaskStart)
	m.bump(bc.Project.Name, taskID, false)

	ws, err := bc.GetWorkspace(m.Style)
	if err != nil {
		return 0, false, err
	}
	monitor := vfs.NewMonitoredReaderWriter(ws)
	monWS := vfs.NewWorkspace(monitor)

	if err := run(ctx, monWS, util); err != nil {
		return 0, false, engerr.Wrap(engerr.TaskFailure, "Manager.runOne", err)
	}
	monitor.Seal()

	reqs := monitor.GetResourceRequests()
	nodeID, err := m.record(ctx, bc, reqs)
	if err != nil {
		return 0, false, err
	}

	m.publish(bc, taskID, events.TaskEnd)
	return nodeID, false, nil
}

// validate re-reads every resource the persisted node's materialized
// request set names and compares its content hash to the one recorded
// when the node was created. Any mismatch (or a resource that has
// disappeared) invalidates the match. The reads are independent and
// I/O-bound, so they are fanned out with errgroup rather than run
// sequentially.
func (m *Manager) validate(ctx context.Context, bc *BuildContext, node *reqdagNode) (bool, error) {
	reader := bc.GetReader(m.Style)

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	valid := true
	invalidate := func() {
		mu.Lock()
		valid = false
		mu.Unlock()
	}

	for path, wantHash := range node.meta.PathHashes {
		path, wantHash := path, wantHash
		g.Go(func() error {
			res, err := reader.ByPath(gctx, path)
			if err != nil {
				if engerr.Is(err, engerr.NotFound) {
					invalidate()
					return nil
				}
				return err
			}
			got, err := res.Integrity()
			if err != nil {
				return err
			}
			if got != wantHash {
				invalidate()
			}
			return nil
		})
	}

	for pattern, snapshot := range node.meta.PatternHashes {
		pattern, snapshot := pattern, snapshot
		g.Go(func() error {
			hits, err := reader.ByGlob(gctx, pattern, vfs.DefaultGlobOptions)
			if err != nil {
				return err
			}
			current := map[string]string{}
			for _, h := range hits {
				hash, err := h.Integrity()
				if err != nil {
					return err
				}
				current[h.Path()] = hash
			}
			if len(current) != len(snapshot) {
				invalidate()
				return nil
			}
			for _, s := range snapshot {
				if current[s.Path] != s.Hash {
					invalidate()
					return nil
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return false, engerr.Wrap(engerr.InvalidState, "Manager.validate", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return valid, nil
}

// record seals the monitor's request set into the DAG, capturing a content
// hash for every resolved resource so a future run can revalidate the
// match without re-executing the task. findExactMatch is consulted first
// so two tasks (or two runs) with identical request sets share one node.
func (m *Manager) record(ctx context.Context, bc *BuildContext, reqs request.Set) (int64, error) {
	if existing, ok := bc.DAG.FindExactMatch(reqs); ok {
		return int64(existing), nil
	}

	meta := NodeMeta{PathHashes: map[string]string{}, PatternHashes: map[string][]PathHash{}}
	reader := bc.GetReader(m.Style)

	for _, r := range reqs {
		switch r.Type {
		case request.TypePath:
			res, err := reader.ByPath(ctx, r.Path)
			if err != nil {
				if engerr.Is(err, engerr.NotFound) {
					continue
				}
				return 0, err
			}
			hash, err := res.Integrity()
			if err != nil {
				return 0, err
			}
			meta.PathHashes[r.Path] = hash
		case request.TypePatterns:
			for _, pattern := range r.Patterns {
				hits, err := reader.ByGlob(ctx, pattern, vfs.DefaultGlobOptions)
				if err != nil {
					return 0, err
				}
				var snap []PathHash
				for _, h := range hits {
					hash, err := h.Integrity()
					if err != nil {
						return 0, err
					}
					snap = append(snap, PathHash{Path: h.Path(), Hash: hash})
				}
				meta.PatternHashes[pattern] = snap
			}
		}
	}

	id := bc.DAG.AddRequestSet(reqs, meta)
	return int64(id), nil
}

func (m *Manager) publish(bc *BuildContext, task string, status events.Status) {
	if m.Bus == nil {
		return
	}
	m.Bus.Publish(events.Event{
		Name:    events.ProjectBuildStatus,
		RunID:   m.RunID,
		Project: bc.Project.Name,
		Type:    bc.Project.Type,
		Task:    task,
		Status:  status,
		Level:   events.LevelInfo,
	})
}

func (m *Manager) bump(project, task string, hit bool) {
	if m.Metrics == nil {
		return
	}
	if hit {
		m.Metrics.StageCacheHits.WithLabelValues(project, task).Inc()
	} else {
		m.Metrics.StageCacheMisses.WithLabelValues(project, task).Inc()
	}
}
