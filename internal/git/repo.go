// Package git wraps the git and gh CLIs for the repository lifecycle the
// agent needs: clone or update, branch, commit, push, and PR creation.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/joescharf/nightfix/internal/output"
	"github.com/joescharf/nightfix/internal/ratelimit"
)

// RepoManager manages local clones under a base directory. Remote git
// operations go through the limiter; purely local ones do not.
type RepoManager struct {
	cloneDir string
	username string
	email    string
	limiter  *ratelimit.Limiter
	ui       *output.UI
}

// NewRepoManager creates a RepoManager. limiter and ui may be nil.
func NewRepoManager(cloneDir, username, email string, limiter *ratelimit.Limiter, ui *output.UI) *RepoManager {
	if ui == nil {
		ui = output.New()
	}
	return &RepoManager{
		cloneDir: cloneDir,
		username: username,
		email:    email,
		limiter:  limiter,
		ui:       ui,
	}
}

// RepoPath returns the local clone path for owner/name.
func (m *RepoManager) RepoPath(repoName string) string {
	return filepath.Join(m.cloneDir, strings.ReplaceAll(repoName, "/", "_"))
}

func gitAt(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	out, err := exec.CommandContext(ctx, "git", fullArgs...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// CloneOrPull ensures a fresh default-branch checkout of repoName and
// returns its local path. An existing clone is reset to the remote default
// branch; a missing one is cloned.
func (m *RepoManager) CloneOrPull(ctx context.Context, repoName string) (string, error) {
	if err := m.throttle(ctx); err != nil {
		return "", err
	}

	path := m.RepoPath(repoName)
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		m.ui.VerboseLog("updating existing clone of %s", repoName)
		if _, err := gitAt(ctx, path, "fetch", "origin", "--prune"); err != nil {
			return "", err
		}
		branch, err := m.defaultBranch(ctx, path)
		if err != nil {
			return "", err
		}
		if _, err := gitAt(ctx, path, "checkout", branch); err != nil {
			return "", err
		}
		if _, err := gitAt(ctx, path, "reset", "--hard", "origin/"+branch); err != nil {
			return "", err
		}
		return path, nil
	}

	m.ui.VerboseLog("cloning %s", repoName)
	if err := os.MkdirAll(m.cloneDir, 0o755); err != nil {
		return "", fmt.Errorf("create clone dir: %w", err)
	}
	url := fmt.Sprintf("https://github.com/%s.git", repoName)
	out, err := exec.CommandContext(ctx, "git", "clone", "--depth", "50", url, path).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git clone %s: %s", repoName, strings.TrimSpace(string(out)))
	}
	return path, nil
}

// defaultBranch resolves origin's HEAD, falling back to main.
func (m *RepoManager) defaultBranch(ctx context.Context, path string) (string, error) {
	ref, err := gitAt(ctx, path, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		return strings.TrimPrefix(ref, "refs/remotes/origin/"), nil
	}
	// A clone made without origin/HEAD still almost always has main.
	if _, err := gitAt(ctx, path, "show-ref", "--verify", "--quiet", "refs/remotes/origin/main"); err == nil {
		return "main", nil
	}
	if _, err := gitAt(ctx, path, "show-ref", "--verify", "--quiet", "refs/remotes/origin/master"); err == nil {
		return "master", nil
	}
	return "", fmt.Errorf("cannot determine default branch for %s", path)
}

// CreateBranch creates and checks out a new branch.
func (m *RepoManager) CreateBranch(ctx context.Context, repoPath, branch string) error {
	_, err := gitAt(ctx, repoPath, "checkout", "-b", branch)
	return err
}

// CommitChanges stages everything and commits as the configured identity.
func (m *RepoManager) CommitChanges(ctx context.Context, repoPath, message string) error {
	if _, err := gitAt(ctx, repoPath, "add", "-A"); err != nil {
		return err
	}
	_, err := gitAt(ctx, repoPath,
		"-c", "user.name="+m.username,
		"-c", "user.email="+m.email,
		"commit", "-m", message)
	return err
}

// PushBranch pushes branch to origin.
func (m *RepoManager) PushBranch(ctx context.Context, repoPath, branch string) error {
	if err := m.throttle(ctx); err != nil {
		return err
	}
	_, err := gitAt(ctx, repoPath, "push", "-u", "origin", branch)
	return err
}

// CleanupBranch returns to the default branch and deletes branch locally,
// and from origin too when remote is set.
func (m *RepoManager) CleanupBranch(ctx context.Context, repoPath, branch string, remote bool) error {
	def, err := m.defaultBranch(ctx, repoPath)
	if err != nil {
		return err
	}
	if _, err := gitAt(ctx, repoPath, "checkout", def); err != nil {
		return err
	}
	if _, err := gitAt(ctx, repoPath, "reset", "--hard", "origin/"+def); err != nil {
		return err
	}
	if _, err := gitAt(ctx, repoPath, "branch", "-D", branch); err != nil {
		m.ui.VerboseLog("delete local branch %s: %v", branch, err)
	}
	if remote {
		if err := m.throttle(ctx); err != nil {
			return err
		}
		if _, err := gitAt(ctx, repoPath, "push", "origin", "--delete", branch); err != nil {
			m.ui.Warning("delete remote branch %s: %v", branch, err)
		}
	}
	return nil
}

// CleanupStale deletes local branches with the given prefix that are not the
// current branch. Used on startup to clear debris from crashed runs.
func (m *RepoManager) CleanupStale(ctx context.Context, repoPath, prefix string) error {
	out, err := gitAt(ctx, repoPath, "branch", "--list", prefix+"*", "--format=%(refname:short)")
	if err != nil {
		return err
	}
	for _, branch := range strings.Fields(out) {
		if _, err := gitAt(ctx, repoPath, "branch", "-D", branch); err != nil {
			m.ui.VerboseLog("delete stale branch %s: %v", branch, err)
		}
	}
	return nil
}

func (m *RepoManager) throttle(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	return m.limiter.Throttle(ctx)
}
