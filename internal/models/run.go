package models

import (
	"fmt"
	"time"
)

// ReviewRun is one nightly review cycle.
type ReviewRun struct {
	ID            int64
	StartedAt     time.Time
	CompletedAt   *time.Time
	ReposReviewed int
	PRsCreated    int
	Status        string // running, completed, failed
	Error         string
}

// PRRecord is the recorded outcome for one repository in one run,
// whether or not a PR was actually created.
type PRRecord struct {
	ID              string
	RunID           int64
	RepoName        string
	PRNumber        int
	PRURL           string
	PRTitle         string
	Success         bool
	Error           string
	BugDescription  string
	AnalysisSeconds float64
	TokensUsed      int
	CreatedAt       time.Time
}

// RejectedFix marks a fix (by content hash) that must never be reapplied.
// Rows are append-only.
type RejectedFix struct {
	ID        int64
	RepoName  string
	FilePath  string
	FixHash   string
	Reason    string
	CreatedAt time.Time
}

// Issue is an open issue used to guide analysis.
type Issue struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
	URL    string   `json:"url"`
}

// PRSummary is the notification-facing view of a PRRecord.
type PRSummary struct {
	RepoName       string
	PRNumber       int
	PRURL          string
	PRTitle        string
	Success        bool
	Error          string
	BugDescription string
}

// ReviewReport is the full morning report for one run.
type ReviewReport struct {
	Date          time.Time
	ReposReviewed int
	PRsCreated    int
	PRs           []PRSummary
	StartTime     time.Time
	EndTime       time.Time
}

// DurationString renders the run duration as "1h 23m" or "42m".
func (r *ReviewReport) DurationString() string {
	d := r.EndTime.Sub(r.StartTime)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
