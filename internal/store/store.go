// Package store persists review history: runs, per-repo PR records, and the
// append-only list of rejected fixes.
package store

import (
	"context"
	"time"

	"github.com/joescharf/nightfix/internal/models"
)

// Store is the persistence interface for review history.
type Store interface {
	// Migrate applies any pending schema migrations.
	Migrate(ctx context.Context) error

	// StartRun inserts a running review run and returns its ID.
	StartRun(ctx context.Context, startedAt time.Time) (int64, error)
	// CompleteRun finalizes a run with its totals and status.
	CompleteRun(ctx context.Context, id int64, reposReviewed, prsCreated int, status, errMsg string) error
	// GetLatestRun returns the most recent run, or nil if none exist.
	GetLatestRun(ctx context.Context) (*models.ReviewRun, error)
	// RecentRuns returns up to limit runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]models.ReviewRun, error)

	// RecordPR inserts one per-repo outcome. An ID is assigned if empty.
	RecordPR(ctx context.Context, rec *models.PRRecord) error
	// RunPRs returns all outcomes recorded for a run.
	RunPRs(ctx context.Context, runID int64) ([]models.PRRecord, error)

	// BuildReport assembles the morning report for a run.
	BuildReport(ctx context.Context, runID int64) (*models.ReviewReport, error)

	// IsFixRejected reports whether a fix hash was rejected before for this
	// repo and file.
	IsFixRejected(ctx context.Context, repoName, filePath, fixHash string) (bool, error)
	// RecordRejectedFix appends a rejected fix.
	RecordRejectedFix(ctx context.Context, rej *models.RejectedFix) error

	Close() error
}
