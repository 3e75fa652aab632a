package stage

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/forgebuild/engine/pkg/buildsig"
	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/lockfile"
	"github.com/forgebuild/engine/pkg/reqdag"
	"github.com/forgebuild/engine/pkg/vfs"
)

// Persistence owns the on-disk cache layout of spec §6: one directory per
// project-build-signature, holding the serialized request DAG, one
// subdirectory per stage's output, and a map of task id to the DAG node
// recorded for it.
type Persistence struct {
	DataDir string // data directory, e.g. $FORGEBUILD_DATA_DIR; the cache lives under its cache/ subdirectory
}

// NewPersistence returns a Persistence rooted at dataDir. An empty dataDir
// falls back to os.UserCacheDir()/forgebuild, mirroring the teacher's
// config.DefaultConfigLocation-style fallback.
func NewPersistence(dataDir string) *Persistence {
	if dataDir == "" {
		if ucd, err := os.UserCacheDir(); err == nil {
			dataDir = filepath.Join(ucd, "forgebuild")
		} else {
			dataDir = filepath.Join(os.TempDir(), "forgebuild")
		}
	}
	return &Persistence{DataDir: dataDir}
}

// ProjectDir returns the cache directory for one project-build-signature.
func (p *Persistence) ProjectDir(project string, sig buildsig.Signature) string {
	return filepath.Join(p.DataDir, "cache", project, sig.String())
}

func (p *Persistence) dagPath(dir string) string      { return filepath.Join(dir, "dag.json") }
func (p *Persistence) stageMapPath(dir string) string  { return filepath.Join(dir, "manifest.json") }
func (p *Persistence) lockPath(dir string) string      { return filepath.Join(dir, "lock") }
func (p *Persistence) stageDir(dir, taskID string) string {
	return filepath.Join(dir, "stages", taskID)
}

// stageMap is the persisted task-id -> DAG-node mapping ("manifest of
// DAG-node -> stage output mapping" in spec §4.3).
type stageMap map[string]reqdag.NodeID

// Prepared is what Load hands back: the project's acquired lock, its
// request DAG (freshly loaded or empty), and, for each task id with a
// still-present cache entry, a ready-to-validate persisted node.
type Prepared struct {
	Dir   string
	Lock  *lockfile.Lock
	DAG   *reqdag.Graph
	Nodes map[string]*reqdagNode // taskID -> persisted node, present only when fully loadable
}

// Load acquires the project-build-signature lock and loads a prior cache.
// Corruption of any kind (bad JSON, a stage-map entry pointing at a DAG
// node that no longer exists, a stage directory that vanished) is not
// fatal: it is logged and the project proceeds as a cold build with an
// empty DAG, per spec §4.3 Failure / §7 CacheCorruption.
func (p *Persistence) Load(ctx context.Context, log *slog.Logger, project string, sig buildsig.Signature) (*Prepared, error) {
	dir := p.ProjectDir(project, sig)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "Persistence.Load", err)
	}

	lock, err := lockfile.Acquire(p.lockPath(dir))
	if err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "Persistence.Load", err)
	}

	prep := &Prepared{Dir: dir, Lock: lock, DAG: reqdag.New(), Nodes: map[string]*reqdagNode{}}

	dagBytes, err := os.ReadFile(p.dagPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return prep, nil // cold: no cache yet, not corruption
		}
		p.corrupt(log, project, "reading dag.json", err)
		return prep, nil
	}

	var obj reqdag.CacheObject
	if err := json.Unmarshal(dagBytes, &obj); err != nil {
		p.corrupt(log, project, "parsing dag.json", err)
		return prep, nil
	}
	graph := reqdag.FromCache(obj)

	smBytes, err := os.ReadFile(p.stageMapPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return prep, nil
		}
		p.corrupt(log, project, "reading manifest.json", err)
		return prep, nil
	}
	var sm stageMap
	if err := json.Unmarshal(smBytes, &sm); err != nil {
		p.corrupt(log, project, "parsing manifest.json", err)
		return prep, nil
	}

	prep.DAG = graph
	for taskID, nodeID := range sm {
		meta, ok := nodeMetaOf(graph, nodeID)
		if !ok {
			p.corrupt(log, project, "manifest.json entry "+taskID+" names a missing DAG node", nil)
			return &Prepared{Dir: dir, Lock: lock, DAG: reqdag.New(), Nodes: map[string]*reqdagNode{}}, nil
		}
		stageDir := p.stageDir(dir, taskID)
		if _, err := os.Stat(stageDir); err != nil {
			p.corrupt(log, project, "stat stages/"+taskID, err)
			return &Prepared{Dir: dir, Lock: lock, DAG: reqdag.New(), Nodes: map[string]*reqdagNode{}}, nil
		}
		prep.Nodes[taskID] = &reqdagNode{
			id:     int64(nodeID),
			reader: vfs.NewOSReader(stageDir, project),
			meta:   meta,
		}
	}
	return prep, nil
}

func (p *Persistence) corrupt(log *slog.Logger, project, what string, err error) {
	if log != nil {
		log.Warn("discarding cache: corruption detected", "project", project, "what", what, "error", err)
	}
}

// nodeMetaOf recovers a NodeMeta from a graph node whose Metadata was
// reconstructed from JSON as a generic map (json.Unmarshal into `any`
// decodes objects as map[string]any) by round-tripping it back through
// encoding/json into the concrete type.
func nodeMetaOf(g *reqdag.Graph, id reqdag.NodeID) (NodeMeta, bool) {
	raw, ok := g.NodeMetadata(id)
	if !ok {
		return NodeMeta{}, false
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return NodeMeta{}, false
	}
	var meta NodeMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return NodeMeta{}, false
	}
	return meta, true
}

// SaveStageOutput persists a single stage's resources to disk under
// stages/<task-id>, writing every file atomically (temp file then rename).
func (p *Persistence) SaveStageOutput(ctx context.Context, dir, taskID string, reader vfs.Reader) error {
	target := p.stageDir(dir, taskID)
	if err := os.RemoveAll(target); err != nil {
		return engerr.Wrap(engerr.InvalidState, "Persistence.SaveStageOutput", err)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return engerr.Wrap(engerr.InvalidState, "Persistence.SaveStageOutput", err)
	}

	resources, err := reader.ByGlob(ctx, "**/*", vfs.DefaultGlobOptions)
	if err != nil {
		return err
	}
	for _, res := range resources {
		data, err := res.Bytes()
		if err != nil {
			return err
		}
		dest := filepath.Join(target, filepath.FromSlash(vfs.Normalize(res.Path())))
		if err := writeFileAtomic(dest, data); err != nil {
			return engerr.Wrap(engerr.InvalidState, "Persistence.SaveStageOutput", err)
		}
	}
	return nil
}

// SaveDAG atomically writes the DAG and the task-id -> node-id map.
func (p *Persistence) SaveDAG(dir string, graph *reqdag.Graph, sm stageMap) error {
	dagBytes, err := json.Marshal(graph.ToCacheObject())
	if err != nil {
		return engerr.Wrap(engerr.InvalidState, "Persistence.SaveDAG", err)
	}
	if err := writeFileAtomic(p.dagPath(dir), dagBytes); err != nil {
		return engerr.Wrap(engerr.InvalidState, "Persistence.SaveDAG", err)
	}

	smBytes, err := json.Marshal(sm)
	if err != nil {
		return engerr.Wrap(engerr.InvalidState, "Persistence.SaveDAG", err)
	}
	if err := writeFileAtomic(p.stageMapPath(dir), smBytes); err != nil {
		return engerr.Wrap(engerr.InvalidState, "Persistence.SaveDAG", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file alongside path, then renames
// it into place, so a concurrent reader (or a crash mid-write) never sees
// a partial file.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
