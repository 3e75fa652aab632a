package vfs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/vfs"
)

func TestGitSourceReaderClonesRemote(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "source-repo")
	repo, err := git.PlainInit(repoPath, false)
	assert.NilError(t, err)

	assert.NilError(t, os.WriteFile(filepath.Join(repoPath, "app.js"), []byte("console.log(1)"), 0o600))

	w, err := repo.Worktree()
	assert.NilError(t, err)
	_, err = w.Add(".")
	assert.NilError(t, err)
	_, err = w.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com"},
	})
	assert.NilError(t, err)

	reader, err := vfs.NewGitSourceReader(context.Background(), vfs.GitSourceSpec{URL: repoPath}, "proj")
	assert.NilError(t, err)

	res, err := reader.ByPath(context.Background(), "/app.js")
	assert.NilError(t, err)
	data, err := res.Bytes()
	assert.NilError(t, err)
	assert.Equal(t, string(data), "console.log(1)")
	assert.Equal(t, res.Project(), "proj")
}

func TestGitSourceReaderMissingRemoteFails(t *testing.T) {
	_, err := vfs.NewGitSourceReader(context.Background(), vfs.GitSourceSpec{URL: filepath.Join(t.TempDir(), "does-not-exist")}, "proj")
	assert.Assert(t, err != nil)
}
