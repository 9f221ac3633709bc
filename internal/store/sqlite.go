package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/nightfix/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool, so
	// concurrent workers never hit "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Review runs ---

func (s *SQLiteStore) StartRun(ctx context.Context, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO review_runs (started_at, status) VALUES (?, 'running')`,
		startedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("start run id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, id int64, reposReviewed, prsCreated int, status, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE review_runs
		SET completed_at = ?, repos_reviewed = ?, prs_created = ?, status = ?, error = ?
		WHERE id = ?`,
		time.Now().UTC(), reposReviewed, prsCreated, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetLatestRun(ctx context.Context) (*models.ReviewRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, completed_at, repos_reviewed, prs_created, status, error
		FROM review_runs ORDER BY id DESC LIMIT 1`)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	return run, nil
}

func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]models.ReviewRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, completed_at, repos_reviewed, prs_created, status, error
		FROM review_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ReviewRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.ReviewRun, error) {
	run := &models.ReviewRun{}
	var completed sql.NullTime
	err := row.Scan(&run.ID, &run.StartedAt, &completed,
		&run.ReposReviewed, &run.PRsCreated, &run.Status, &run.Error)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	return run, nil
}

// --- PR records ---

func (s *SQLiteStore) RecordPR(ctx context.Context, rec *models.PRRecord) error {
	if rec.ID == "" {
		rec.ID = newULID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pr_records (id, run_id, repo_name, pr_number, pr_url, pr_title, success, error, bug_description, analysis_seconds, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.RepoName, rec.PRNumber, rec.PRURL, rec.PRTitle,
		boolToInt(rec.Success), rec.Error, rec.BugDescription,
		rec.AnalysisSeconds, rec.TokensUsed, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record pr: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RunPRs(ctx context.Context, runID int64) ([]models.PRRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, repo_name, pr_number, pr_url, pr_title, success, error, bug_description, analysis_seconds, tokens_used, created_at
		FROM pr_records WHERE run_id = ? ORDER BY created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("run prs: %w", err)
	}
	defer rows.Close()

	var recs []models.PRRecord
	for rows.Next() {
		var rec models.PRRecord
		err := rows.Scan(&rec.ID, &rec.RunID, &rec.RepoName, &rec.PRNumber,
			&rec.PRURL, &rec.PRTitle, &rec.Success, &rec.Error,
			&rec.BugDescription, &rec.AnalysisSeconds, &rec.TokensUsed, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan pr record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// BuildReport assembles the morning report for a run.
func (s *SQLiteStore) BuildReport(ctx context.Context, runID int64) (*models.ReviewReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, completed_at, repos_reviewed, prs_created, status, error
		FROM review_runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %d", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}

	recs, err := s.RunPRs(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &models.ReviewReport{
		Date:          run.StartedAt,
		ReposReviewed: run.ReposReviewed,
		PRsCreated:    run.PRsCreated,
		StartTime:     run.StartedAt,
		EndTime:       run.StartedAt,
	}
	if run.CompletedAt != nil {
		report.EndTime = *run.CompletedAt
	}
	for _, rec := range recs {
		report.PRs = append(report.PRs, models.PRSummary{
			RepoName:       rec.RepoName,
			PRNumber:       rec.PRNumber,
			PRURL:          rec.PRURL,
			PRTitle:        rec.PRTitle,
			Success:        rec.Success,
			Error:          rec.Error,
			BugDescription: rec.BugDescription,
		})
	}
	return report, nil
}

// --- Rejected fixes ---

func (s *SQLiteStore) IsFixRejected(ctx context.Context, repoName, filePath, fixHash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rejected_fixes WHERE repo_name = ? AND file_path = ? AND fix_hash = ?`,
		repoName, filePath, fixHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check rejected fix: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) RecordRejectedFix(ctx context.Context, rej *models.RejectedFix) error {
	if rej.CreatedAt.IsZero() {
		rej.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rejected_fixes (repo_name, file_path, fix_hash, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rej.RepoName, rej.FilePath, rej.FixHash, rej.Reason, rej.CreatedAt)
	if err != nil {
		return fmt.Errorf("record rejected fix: %w", err)
	}
	rej.ID, _ = res.LastInsertId()
	return nil
}
