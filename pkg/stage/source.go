package stage

import (
	"context"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/project"
	"github.com/forgebuild/engine/pkg/vfs"
)

// SourceReaders builds the per-style project source readers consumed by a
// BuildContext, per spec §4.1: buildtime/dist project bare source paths
// under "/resources/<namespace>/", flat strips the namespace back off
// (exposing the bare on-disk layout), and runtime is the same namespaced
// view as buildtime — this engine does not implement build-exclude
// filtering, the one axis spec §4.1 says runtime differs on, so the two
// styles are equivalent here (see DESIGN.md).
//
// A project declares its source location as either an on-disk SourceDir
// (vfs.NewOSReader) or a GitURL (vfs.NewGitSourceReader, cloned into an
// in-memory worktree) — the two are mutually exclusive, checked here rather
// than at project-graph construction time since only the source reader
// actually needs to resolve one.
func SourceReaders(ctx context.Context, p *project.Project) (map[Style]vfs.Reader, error) {
	ns := p.Namespace
	if ns == "" {
		ns = p.Name
	}

	var base vfs.Reader
	switch {
	case p.GitURL != "" && p.SourceDir != "":
		return nil, engerr.New(engerr.InvalidConfiguration, "stage.SourceReaders",
			"project "+p.Name+" declares both SourceDir and GitURL")
	case p.GitURL != "":
		reader, err := vfs.NewGitSourceReader(ctx, vfs.GitSourceSpec{URL: p.GitURL, Ref: p.GitRef}, p.Name)
		if err != nil {
			return nil, err
		}
		base = reader
	default:
		base = vfs.NewOSReader(p.SourceDir, p.Name)
	}

	namespaced := vfs.NewNamespacedReader(base, "/resources/"+ns)

	return map[Style]vfs.Reader{
		StyleBuildtime: namespaced,
		StyleDist:      namespaced,
		StyleRuntime:   namespaced,
		StyleFlat:      base,
	}, nil
}
