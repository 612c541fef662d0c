// Package vcs reads information about the checked out revision, so runs can be told apart in the history.
package vcs

import (
	"github.com/go-git/go-git/v5"

	"github.com/rwx-research/conductor/internal/errors"
)

// Revision is the checked out commit of a repository
type Revision struct {
	Commit string
	Branch string
}

// HeadRevision finds the repository that contains `dir` (walking up the parent directories) and returns its HEAD.
// Branch is empty for a detached HEAD.
func HeadRevision(dir string) (Revision, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Revision{}, errors.NewSystemError("unable to open a git repository at %q: %s", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return Revision{}, errors.NewSystemError("unable to resolve HEAD: %s", err)
	}

	revision := Revision{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		revision.Branch = head.Name().Short()
	}

	return revision, nil
}

// HeadCommit is like HeadRevision, but it returns an empty string instead of an error. Runs outside of a repository
// are common, e.g. in containers.
func HeadCommit(dir string) string {
	revision, err := HeadRevision(dir)
	if err != nil {
		return ""
	}

	return revision.Commit
}
