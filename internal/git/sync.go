package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gitsight/go-vcsurl"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/scan-io-git/crnow/pkg/shared/config"
	log "github.com/scan-io-git/crnow/pkg/shared/logger"
)

// SyncRules clones the rules repository into targetFolder, or updates it when a clone is already there.
// It returns the folder holding the checked out rules.
func (c *Client) SyncRules(ctx context.Context, targetFolder string) (string, error) {
	cloneURL := c.rules.Repository
	name := cloneURL
	if info, err := vcsurl.Parse(cloneURL); err == nil {
		name = info.FullName
	} else {
		c.logger.Debug("rules repository is not a known VCS URL", "url", cloneURL, "error", err)
	}

	var branch plumbing.ReferenceName
	if c.rules.Branch != "" {
		branch = determineBranch(c.rules.Branch, "")
	}
	output := log.GetLoggerOutput(c.logger)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("starting rules fetch", "repository", name, "branch", branch, "cloneURL", cloneURL, "targetFolder", targetFolder)
	repo, err := git.PlainCloneContext(ctx, targetFolder, false, c.cloneOptions(cloneURL, branch, output))
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryAlreadyExists) {
			c.logger.Error("error occurred during clone", "error", err, "targetFolder", targetFolder)
			return "", fmt.Errorf("error occurred during clone: %w", err)
		}

		c.logger.Info("rules repository already exists, updating...", "targetFolder", targetFolder)
		repo, err = git.PlainOpen(targetFolder)
		if err != nil {
			c.logger.Error("cannot open existing repository", "error", err, "targetFolder", targetFolder)
			return "", fmt.Errorf("cannot open existing repository: %w", err)
		}

		if branch == "" {
			head, err := repo.Head()
			if err != nil {
				return "", fmt.Errorf("failed to resolve current branch: %w", err)
			}
			branch = head.Name()
		}

		repo, err = c.updateRepository(ctx, repo, output, targetFolder, branch)
		if err != nil {
			return "", err
		}
		if err := c.checkoutAndResetBranch(repo, branch, targetFolder); err != nil {
			return "", err
		}
	}

	c.logger.Info("rules sync completed successfully", "repository", name, "branch", branch, "targetFolder", targetFolder)
	return targetFolder, nil
}

func (c *Client) cloneOptions(url string, branch plumbing.ReferenceName, output io.Writer) *git.CloneOptions {
	return &git.CloneOptions{
		Auth:            c.auth,
		URL:             url,
		ReferenceName:   branch,
		SingleBranch:    branch != "",
		Progress:        output,
		Depth:           config.SetThen(c.globalConfig.GitClient.Depth, 1),
		InsecureSkipTLS: config.GetBoolValue(c.globalConfig.GitClient, "InsecureTLS", false),
	}
}

// updateRepository fetches updates from the remote repository, recloning when the local copy is broken.
func (c *Client) updateRepository(ctx context.Context, repo *git.Repository, output io.Writer, targetFolder string, branch plumbing.ReferenceName) (*git.Repository, error) {
	c.logger.Debug("update repo by using fetch", "targetFolder", targetFolder)
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName:      "origin",
		Auth:            c.auth,
		Progress:        output,
		RefSpecs:        []gitconfig.RefSpec{"+refs/heads/*:refs/heads/*"},
		Depth:           config.SetThen(c.globalConfig.GitClient.Depth, 1),
		Force:           true,
		InsecureSkipTLS: config.GetBoolValue(c.globalConfig.GitClient, "InsecureTLS", false),
	})
	switch {
	case err == nil:
		return repo, nil
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		c.logger.Info("rules repository already up-to-date", "targetFolder", targetFolder)
		return repo, nil
	case errors.Is(err, plumbing.ErrObjectNotFound), errors.Is(err, plumbing.ErrReferenceNotFound):
		c.logger.Warn("object/reference not found in the repository. Cleaning up the repo ...", "targetFolder", targetFolder, "error", err)
		if err := os.RemoveAll(targetFolder); err != nil {
			c.logger.Error("failed to remove repository", "error", err)
			return nil, fmt.Errorf("failed to remove repository: %w", err)
		}

		repo, err := git.PlainCloneContext(ctx, targetFolder, false, c.cloneOptions(c.rules.Repository, branch, output))
		if err != nil {
			c.logger.Error("retrying clone failed", "error", err)
			return nil, fmt.Errorf("retrying clone failed: %w", err)
		}
		return repo, nil
	default:
		c.logger.Error("error occurred during fetch", "error", err, "targetFolder", targetFolder)
		return nil, fmt.Errorf("error occurred during fetch: %w", err)
	}
}

// checkoutAndResetBranch checks out and resets the branch.
func (c *Client) checkoutAndResetBranch(repo *git.Repository, branch plumbing.ReferenceName, targetFolder string) error {
	w, err := repo.Worktree()
	if err != nil {
		c.logger.Error("error accessing worktree", "error", err, "targetFolder", targetFolder)
		return fmt.Errorf("error accessing worktree: %w", err)
	}

	c.logger.Debug("checking out branch", "branch", branch, "targetFolder", targetFolder)
	if err := w.Checkout(&git.CheckoutOptions{
		Branch: branch,
		Force:  true,
	}); err != nil {
		c.logger.Error("error occurred during checkout", "error", err, "targetFolder", targetFolder)
		return fmt.Errorf("error occurred during checkout: %w", err)
	}

	c.logger.Debug("resetting local repository", "targetFolder", targetFolder)
	if err := w.Reset(&git.ResetOptions{
		Mode: git.HardReset,
	}); err != nil {
		c.logger.Error("error occurred during reset", "error", err, "targetFolder", targetFolder)
		return fmt.Errorf("error occurred during reset: %w", err)
	}
	return nil
}
