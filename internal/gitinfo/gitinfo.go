// Package gitinfo reads repository state from a local checkout. The audit
// uses it to stamp reports with the reviewed commit and to detect a
// checkout that drifted from the pull request head.
package gitinfo

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Info is a snapshot of a checkout's HEAD.
type Info struct {
	CommitHash string
	Branch     string
	RemoteURL  string
}

// IsRepo reports whether path is inside a git repository.
func IsRepo(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

// Read opens the repository at path and returns its HEAD state. Branch is
// empty on a detached HEAD; RemoteURL is empty when no origin remote
// exists.
func Read(path string) (*Info, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("opening git repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}

	info := &Info{CommitHash: head.Hash().String()}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.RemoteURL = urls[0]
		}
	}

	return info, nil
}

// MatchesCommit reports whether the checkout's HEAD is the given commit.
func (i *Info) MatchesCommit(sha string) bool {
	return sha != "" && i.CommitHash == sha
}
