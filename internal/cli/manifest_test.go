package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/internal/cli"
)

func writeManifest(t *testing.T, dir, contents string) {
	t.Helper()
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "forgebuild.yaml"), []byte(contents), 0o644))
}

func TestLoadProjectDefaultsNamespaceFromName(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "name: application.a\nversion: 1.0.0\n")

	p, err := cli.LoadProject(dir)
	assert.NilError(t, err)
	assert.Equal(t, p.Name, "application.a")
	assert.Equal(t, p.Namespace, "application/a")
	assert.Equal(t, p.Type, "application")
	assert.Equal(t, p.SourceDir, dir)
	assert.Assert(t, p.RootProject)
}

func TestLoadProjectHonorsExplicitNamespace(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "name: application.a\nnamespace: custom/ns\n")

	p, err := cli.LoadProject(dir)
	assert.NilError(t, err)
	assert.Equal(t, p.Namespace, "custom/ns")
}

func TestLoadProjectRejectsMissingName(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "version: 1.0.0\n")

	_, err := cli.LoadProject(dir)
	assert.ErrorContains(t, err, "name")
}

func TestLoadProjectRejectsMissingManifest(t *testing.T) {
	_, err := cli.LoadProject(t.TempDir())
	assert.Assert(t, err != nil)
}
