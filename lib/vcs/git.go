package vcs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/phloem-dev/phloem/config"
	"github.com/phloem-dev/phloem/constants"
	"github.com/phloem-dev/phloem/lib/console"
	"golang.org/x/time/rate"
)

// Git is the sync transport for one project working copy. It only performs
// whole operations (clone, pull, commit, rebase-pull, push) against the
// project's remote; callers never see git internals beyond an opaque revision
// string.
type Git struct {
	projectID string
	dir       string
	url       string
	limiter   *rate.Limiter
}

// NewGit returns a transport for the given project ID over the working copy
// at dir. The remote URL is derived from the configured git server.
func NewGit(projectID string, dir string) *Git {
	return &Git{
		projectID: projectID,
		dir:       dir,
		url:       fmt.Sprintf("%s/%s", strings.TrimSuffix(config.I.Sync.GitServerURL, "/"), projectID),
		limiter:   config.I.RateLimiter,
	}
}

// NewGitRemote returns a transport over dir with an explicit remote URL,
// bypassing the configured server. Used for mirrors of local repositories.
func NewGitRemote(url string, dir string) *Git {
	return &Git{
		projectID: url,
		dir:       dir,
		url:       url,
		limiter:   config.I.RateLimiter,
	}
}

// Dir returns the working copy path.
func (g *Git) Dir() string {
	return g.dir
}

func (g *Git) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

func branchRef() plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(constants.RemoteBranch)
}

// CloneIfAbsent clones the remote into the working copy unless one already
// exists there. Safe to call repeatedly.
func (g *Git) CloneIfAbsent(ctx context.Context) error {
	if _, err := gogit.PlainOpen(g.dir); err == nil {
		return nil
	} else if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return err
	}

	if err := g.wait(ctx); err != nil {
		return err
	}

	console.Verbose("Cloning %s into %s", g.url, g.dir)
	_, err := gogit.PlainCloneContext(ctx, g.dir, false, &gogit.CloneOptions{
		URL:           g.url,
		ReferenceName: branchRef(),
		SingleBranch:  true,
	})
	if err != nil && !errors.Is(err, gogit.ErrRepositoryAlreadyExists) {
		return fmt.Errorf("failed to clone %s: %w", g.url, err)
	}

	return nil
}

// Pull fast-forwards the working copy to the remote branch head.
// Already-up-to-date is not an error.
func (g *Git) Pull(ctx context.Context) error {
	repo, err := gogit.PlainOpen(g.dir)
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}

	if err := g.wait(ctx); err != nil {
		return err
	}

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: branchRef(),
		SingleBranch:  true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull %s: %w", g.url, err)
	}

	return nil
}

// Commit stages every local modification and commits it. A clean working copy
// is a no-op, not an error.
func (g *Git) Commit(ctx context.Context, message string) error {
	repo, err := gogit.PlainOpen(g.dir)
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}

	status, err := worktree.Status()
	if err != nil {
		return err
	}
	if status.IsClean() {
		console.Verbose("No changes to commit")
		return nil
	}

	if err := worktree.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return err
	}

	_, err = worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "phloem",
			Email: "phloem@localhost",
			When:  time.Now(),
		},
	})
	return err
}

// RebasePull integrates upstream changes underneath local commits. go-git has
// no rebase support, so this is the one operation that shells out to the git
// binary. On conflict the rebase is left in progress; callers must follow up
// with AbortRebase before reporting failure.
func (g *Git) RebasePull(ctx context.Context) error {
	if err := g.wait(ctx); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "git", "-C", g.dir, "pull", "--rebase", "origin", constants.RemoteBranch)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git pull --rebase failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return nil
}

// AbortRebase aborts an in-progress rebase, restoring the working copy to its
// pre-rebase state.
func (g *Git) AbortRebase(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "git", "-C", g.dir, "rebase", "--abort")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git rebase --abort failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return nil
}

// Push transmits local commits to the remote. Already-up-to-date is not an
// error.
func (g *Git) Push(ctx context.Context) error {
	repo, err := gogit.PlainOpen(g.dir)
	if err != nil {
		return err
	}

	if err := g.wait(ctx); err != nil {
		return err
	}

	err = repo.PushContext(ctx, &gogit.PushOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push to %s: %w", g.url, err)
	}

	return nil
}

// Head returns the current revision identifier of the working copy.
func (g *Git) Head() (string, error) {
	repo, err := gogit.PlainOpen(g.dir)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", err
	}

	return head.Hash().String(), nil
}
