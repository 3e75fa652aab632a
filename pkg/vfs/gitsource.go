package vfs

import (
	"context"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/forgebuild/engine/pkg/engerr"
)

// GitSourceSpec names a project source that lives in a git remote rather
// than a local directory: the remote URL and the ref (branch name) to
// check out. An empty Ref checks out the remote's default branch.
type GitSourceSpec struct {
	URL string
	Ref string
}

// NewGitSourceReader clones spec into an in-memory worktree — a go-billy
// memfs backed by a go-git in-memory object store, the same
// billy.Filesystem-over-go-git idiom the teacher's repository.go uses to
// fetch template repositories — and returns a BillyReader over the checked
// out tree, tagging every resource with project. stage.SourceReaders calls
// this when a project declares a GitURL instead of an on-disk SourceDir.
func NewGitSourceReader(ctx context.Context, spec GitSourceSpec, project string) (*BillyReader, error) {
	fs := memfs.New()
	opts := &git.CloneOptions{
		URL:          spec.URL,
		SingleBranch: true,
		Depth:        1,
	}
	if spec.Ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(spec.Ref)
	}

	if _, err := git.CloneContext(ctx, memory.NewStorage(), fs, opts); err != nil {
		return nil, engerr.Wrap(engerr.InvalidState, "NewGitSourceReader", err)
	}
	return NewBillyReader(fs, project), nil
}
