// Package review orchestrates the nightly cycle: a worker pool walks the
// configured repositories and, for each one, analyzes, validates, applies,
// and publishes at most one fix as a pull request.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joescharf/nightfix/internal/analyze"
	"github.com/joescharf/nightfix/internal/git"
	"github.com/joescharf/nightfix/internal/models"
	"github.com/joescharf/nightfix/internal/output"
	"github.com/joescharf/nightfix/internal/ratelimit"
	"github.com/joescharf/nightfix/internal/store"
)

// DefaultIssueLimit caps how many prioritized issues are sent to the model
// per repository.
const DefaultIssueLimit = 5

// GitManager is the local-repository surface the runner needs.
type GitManager interface {
	CloneOrPull(ctx context.Context, repoName string) (string, error)
	CreateBranch(ctx context.Context, repoPath, branch string) error
	CommitChanges(ctx context.Context, repoPath, message string) error
	PushBranch(ctx context.Context, repoPath, branch string) error
	CleanupBranch(ctx context.Context, repoPath, branch string, remote bool) error
	CleanupStale(ctx context.Context, repoPath, prefix string) error
}

// Analyzer produces at most one validated fix per repository.
type Analyzer interface {
	Analyze(ctx context.Context, repoPath, repoName string, issues []models.Issue) models.AnalysisResult
}

// Applier writes a fix to the working tree with verification and rollback.
type Applier interface {
	Apply(ctx context.Context, repoRoot string, fix *models.FixSuggestion) error
}

// Deadline bounds how long a cycle may keep starting new repositories.
type Deadline interface {
	MarkReviewStarted() time.Time
	IsPastDeadline() bool
	TimeRemaining() time.Duration
}

// Config holds the per-cycle settings for a Runner.
type Config struct {
	Repos        []string
	MaxWorkers   int
	BranchPrefix string
	IssueLimit   int
	DryRun       bool
	RunTests     bool
	TestTimeout  time.Duration
}

// Runner drives one or more review cycles.
type Runner struct {
	cfg      Config
	repos    GitManager
	github   git.GitHubClient
	analyzer Analyzer
	applier  Applier
	deadline Deadline
	store    store.Store
	ui       *output.UI

	active sync.WaitGroup
}

// NewRunner wires a Runner from its collaborators. ui may be nil.
func NewRunner(cfg Config, repos GitManager, github git.GitHubClient, analyzer Analyzer, applier Applier, deadline Deadline, st store.Store, ui *output.UI) *Runner {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.IssueLimit <= 0 {
		cfg.IssueLimit = DefaultIssueLimit
	}
	if cfg.BranchPrefix == "" {
		cfg.BranchPrefix = "nightfix/"
	}
	if ui == nil {
		ui = output.New()
	}
	return &Runner{
		cfg:      cfg,
		repos:    repos,
		github:   github,
		analyzer: analyzer,
		applier:  applier,
		deadline: deadline,
		store:    st,
		ui:       ui,
	}
}

// RunCycle executes one full review cycle and returns the run ID. Repos are
// handed to workers until the list is exhausted or the deadline passes;
// repos already in flight at the deadline run to completion.
func (r *Runner) RunCycle(ctx context.Context) (int64, error) {
	r.active.Add(1)
	defer r.active.Done()

	deadline := r.deadline.MarkReviewStarted()
	r.ui.Info("starting review of %d repositories, deadline %s",
		len(r.cfg.Repos), deadline.Format("15:04 MST"))

	runID, err := r.store.StartRun(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}

	repoCh := make(chan string)
	results := make(chan models.PRRecord)

	var workers sync.WaitGroup
	for i := 0; i < r.cfg.MaxWorkers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for repoName := range repoCh {
				results <- r.reviewRepoSafe(ctx, runID, repoName)
			}
		}()
	}

	// The feeder stops handing out repos once the deadline passes or the
	// context is cancelled; in-flight repos finish normally.
	go func() {
		defer close(repoCh)
		for _, repoName := range r.cfg.Repos {
			if ctx.Err() != nil {
				return
			}
			if r.deadline.IsPastDeadline() {
				r.ui.Warning("deadline reached, skipping remaining repositories")
				return
			}
			select {
			case repoCh <- repoName:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		workers.Wait()
		close(results)
	}()

	reviewed, prs := 0, 0
	for rec := range results {
		reviewed++
		if rec.Success && rec.Error == "" {
			prs++
		}
		rec.RunID = runID
		if err := r.store.RecordPR(ctx, &rec); err != nil {
			r.ui.Error("record outcome for %s: %v", rec.RepoName, err)
		}
	}

	status := "completed"
	if err := r.store.CompleteRun(ctx, runID, reviewed, prs, status, ""); err != nil {
		r.ui.Error("complete run: %v", err)
	}

	if reviewed > 0 && prs == 0 {
		r.ui.Warning("reviewed %d repositories without opening a single PR", reviewed)
	}
	r.ui.Success("cycle complete: %d reviewed, %d PRs", reviewed, prs)
	return runID, nil
}

// WaitIdle blocks until no cycle is running or the timeout expires,
// returning true when idle.
func (r *Runner) WaitIdle(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// reviewRepoSafe isolates panics so one bad repo cannot take down the
// cycle.
func (r *Runner) reviewRepoSafe(ctx context.Context, runID int64, repoName string) (rec models.PRRecord) {
	defer func() {
		if p := recover(); p != nil {
			r.ui.Error("panic reviewing %s: %v", repoName, p)
			rec = failure(repoName, fmt.Sprintf("panic: %v", p))
		}
	}()
	return r.reviewRepo(ctx, runID, repoName)
}

func failure(repoName, errMsg string) models.PRRecord {
	return models.PRRecord{RepoName: repoName, Success: false, Error: errMsg}
}

// reviewRepo runs the full pipeline for one repository and returns the
// outcome record. RunID is filled in by the collector.
func (r *Runner) reviewRepo(ctx context.Context, runID int64, repoName string) models.PRRecord {
	r.ui.Info("reviewing %s", repoName)

	repoPath, err := r.repos.CloneOrPull(ctx, repoName)
	if err != nil {
		if msg, ok := exhaustedMessage(err); ok {
			return failure(repoName, msg)
		}
		return failure(repoName, fmt.Sprintf("clone: %v", err))
	}

	// Debris from a crashed earlier run would collide with today's branch.
	if err := r.repos.CleanupStale(ctx, repoPath, r.cfg.BranchPrefix); err != nil {
		r.ui.VerboseLog("stale branch cleanup for %s: %v", repoName, err)
	}

	hasPR, err := r.github.HasOpenPRWithPrefix(ctx, repoName, r.cfg.BranchPrefix)
	if err != nil {
		if msg, ok := exhaustedMessage(err); ok {
			return failure(repoName, msg)
		}
		r.ui.Warning("PR check failed for %s: %v", repoName, err)
	} else if hasPR {
		r.ui.VerboseLog("%s already has an open PR, skipping", repoName)
		return failure(repoName, "open PR already exists")
	}

	issues, err := r.openIssues(ctx, repoName)
	if err != nil {
		if msg, ok := exhaustedMessage(err); ok {
			return failure(repoName, msg)
		}
		r.ui.Warning("issue fetch failed for %s: %v", repoName, err)
	}

	result := r.analyzer.Analyze(ctx, repoPath, repoName, issues)
	rec := models.PRRecord{
		RepoName:        repoName,
		AnalysisSeconds: result.AnalysisTime.Seconds(),
		TokensUsed:      result.TokensUsed,
	}
	if !result.Success() {
		rec.Error = result.Error
		return rec
	}
	if !result.FoundFix {
		rec.Error = "no fix found"
		return rec
	}
	fix := result.Fix
	rec.BugDescription = fix.BugDescription
	rec.PRTitle = fix.PRTitle

	rejected, err := r.store.IsFixRejected(ctx, repoName, fix.FilePath, fix.Hash())
	if err != nil {
		r.ui.Warning("rejected-fix lookup failed for %s: %v", repoName, err)
	} else if rejected {
		rec.Error = "fix previously rejected"
		return rec
	}

	branch := r.cfg.BranchPrefix + time.Now().Format("20060102-150405") + "-" + git.SanitizeBranchName(fix.PRTitle)
	if err := r.repos.CreateBranch(ctx, repoPath, branch); err != nil {
		rec.Error = fmt.Sprintf("create branch: %v", err)
		return rec
	}

	if err := r.applier.Apply(ctx, repoPath, fix); err != nil {
		r.rejectFix(ctx, repoName, fix, "apply failed: "+err.Error())
		r.cleanup(ctx, repoPath, branch, false)
		rec.Error = fmt.Sprintf("apply: %v", err)
		return rec
	}

	if r.cfg.RunTests {
		tr := runRepoTests(ctx, repoPath, r.cfg.TestTimeout, r.ui)
		if tr.Ran && !tr.Passed {
			r.rejectFix(ctx, repoName, fix, "tests failed: "+tr.Detail)
			r.cleanup(ctx, repoPath, branch, false)
			rec.Error = "tests failed after fix"
			return rec
		}
	}

	if err := r.repos.CommitChanges(ctx, repoPath, commitMessage(fix)); err != nil {
		r.cleanup(ctx, repoPath, branch, false)
		rec.Error = fmt.Sprintf("commit: %v", err)
		return rec
	}

	if r.cfg.DryRun {
		r.ui.DryRunMsg("would push %s and open PR %q on %s", branch, fix.PRTitle, repoName)
		r.cleanup(ctx, repoPath, branch, false)
		rec.Success = true
		rec.Error = "dry_run"
		return rec
	}

	if err := r.repos.PushBranch(ctx, repoPath, branch); err != nil {
		r.cleanup(ctx, repoPath, branch, false)
		rec.Error = fmt.Sprintf("push: %v", err)
		return rec
	}

	number, url, err := r.github.CreatePR(ctx, repoName, branch, fix.PRTitle, buildPRBody(fix))
	if err != nil {
		r.cleanup(ctx, repoPath, branch, true)
		rec.Error = fmt.Sprintf("create PR: %v", err)
		return rec
	}

	rec.Success = true
	rec.PRNumber = number
	rec.PRURL = url
	r.ui.Success("opened %s for %s", url, repoName)
	return rec
}

func (r *Runner) openIssues(ctx context.Context, repoName string) ([]models.Issue, error) {
	raw, err := r.github.OpenIssues(ctx, repoName, 30)
	if err != nil {
		return nil, err
	}
	return analyze.Prioritize(analyze.FilterActionable(raw), r.cfg.IssueLimit), nil
}

func (r *Runner) rejectFix(ctx context.Context, repoName string, fix *models.FixSuggestion, reason string) {
	err := r.store.RecordRejectedFix(ctx, &models.RejectedFix{
		RepoName: repoName,
		FilePath: fix.FilePath,
		FixHash:  fix.Hash(),
		Reason:   reason,
	})
	if err != nil {
		r.ui.Error("record rejected fix for %s: %v", repoName, err)
	}
}

func (r *Runner) cleanup(ctx context.Context, repoPath, branch string, remote bool) {
	if err := r.repos.CleanupBranch(ctx, repoPath, branch, remote); err != nil {
		r.ui.Warning("cleanup branch %s: %v", branch, err)
	}
}

// exhaustedMessage maps a rate-limit exhaustion error to its record text.
func exhaustedMessage(err error) (string, bool) {
	var exhausted *ratelimit.ExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Sprintf("Rate limit exhausted (%.0fs wait)", exhausted.WaitSeconds), true
	}
	return "", false
}
