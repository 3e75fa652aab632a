package stage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/buildsig"
	"github.com/forgebuild/engine/pkg/stage"
)

func TestLoadTreatsMissingCacheAsCold(t *testing.T) {
	p := stage.NewPersistence(t.TempDir())
	sig := buildsig.Compute(buildsig.Input{ProjectName: "app"})
	prep, err := p.Load(context.Background(), nil, "app", sig)
	assert.NilError(t, err)
	assert.Equal(t, len(prep.Nodes), 0)
}

func TestLoadDiscardsCorruptDAGWithoutFailing(t *testing.T) {
	p := stage.NewPersistence(t.TempDir())
	sig := buildsig.Compute(buildsig.Input{ProjectName: "app"})
	dir := p.ProjectDir("app", sig)
	assert.NilError(t, os.MkdirAll(dir, 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "dag.json"), []byte("not json"), 0o644))

	prep, err := p.Load(context.Background(), nil, "app", sig)
	assert.NilError(t, err)
	assert.Equal(t, len(prep.Nodes), 0)
}
