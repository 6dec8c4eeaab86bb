package git

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// determineBranch returns the appropriate branch reference.
func determineBranch(branch, defaultBranch string) plumbing.ReferenceName {
	if branch == "" {
		branch = defaultBranch
	}
	ref := plumbing.ReferenceName(branch)
	if !ref.IsBranch() && !ref.IsRemote() && !ref.IsTag() && !ref.IsNote() {
		return plumbing.NewBranchReferenceName(branch)
	}
	return ref
}

// findGitRepositoryPath walks up from folder until it finds a git repository.
func findGitRepositoryPath(folder string) (string, error) {
	if folder == "" {
		return "", fmt.Errorf("folder is not set")
	}

	for {
		_, err := git.PlainOpen(folder)
		if err == nil {
			return folder, nil
		}

		parent := filepath.Dir(folder)
		if parent == folder {
			break
		}
		folder = parent
	}

	return "", fmt.Errorf("folder is not inside a git repository")
}
