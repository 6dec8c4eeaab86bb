package git

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// RepositoryMetadata describes the checkout a rules folder belongs to.
type RepositoryMetadata struct {
	BranchName         *string
	CommitHash         *string
	RepositoryFullName *string
	Subfolder          string
	RepoRootFolder     string
}

// CollectRepositoryMetadata collects branch name, commit hash, remote name and subfolder
// of the repository holding rulesFolder.
func CollectRepositoryMetadata(rulesFolder string) (*RepositoryMetadata, error) {
	if rulesFolder == "" {
		return &RepositoryMetadata{}, fmt.Errorf("rules folder is not set")
	}

	if absSource, err := filepath.Abs(rulesFolder); err == nil {
		rulesFolder = absSource
	}

	md := &RepositoryMetadata{
		RepoRootFolder: filepath.Clean(rulesFolder),
	}

	repoRootFolder, err := findGitRepositoryPath(rulesFolder)
	if err != nil {
		return md, err
	}

	md.RepoRootFolder = filepath.Clean(repoRootFolder)

	repo, err := git.PlainOpen(repoRootFolder)
	if err != nil {
		return md, fmt.Errorf("failed to open repository: %w", err)
	}

	if rel, err := filepath.Rel(repoRootFolder, rulesFolder); err == nil && rel != "." {
		md.Subfolder = filepath.ToSlash(rel)
	}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			branchName := head.Name().Short()
			md.BranchName = &branchName
		}

		hash := head.Hash().String()
		md.CommitHash = &hash
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			repositoryFullName := strings.TrimSuffix(cfg.URLs[0], ".git")
			md.RepositoryFullName = &repositoryFullName
		}
	}

	return md, nil
}
