package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitescan/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "sitescan.db"

// RunDB provides SQLite-based storage for run reports.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (r *RunDB) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *RunDB) Path() string {
	return r.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (r *RunDB) createTables() error {
	schema := `
	-- One row per site run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		timed_out INTEGER NOT NULL,
		checks_total INTEGER NOT NULL,
		checks_failed INTEGER NOT NULL,
		failure_count INTEGER NOT NULL,
		warning_count INTEGER NOT NULL,
		sitemap_urls INTEGER NOT NULL,
		sitemap_digest TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);

	-- One row per failure line, for comparing runs
	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		check_name TEXT NOT NULL,
		url TEXT NOT NULL,
		source TEXT,
		status_code INTEGER,
		message TEXT,
		line TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`

	_, err := r.db.ExecContext(context.Background(), schema)
	return err
}

// RunMeta contains summary information about a stored run.
// It is used for listing history without loading the full report.
type RunMeta struct {
	ID            int64         `json:"id"`
	Site          string        `json:"site"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Passed        bool          `json:"passed"`
	TimedOut      bool          `json:"timed_out"`
	ChecksTotal   int           `json:"checks_total"`
	ChecksFailed  int           `json:"checks_failed"`
	Failures      int           `json:"failures"`
	Warnings      int           `json:"warnings"`
	SitemapURLs   int           `json:"sitemap_urls"`
	SitemapDigest string        `json:"sitemap_digest,omitempty"`
}

// FailureRecord is one stored failure line.
type FailureRecord struct {
	Check      string `json:"check"`
	URL        string `json:"url"`
	Source     string `json:"source,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message,omitempty"`

	// Line is the report line, e.g. "HTTP 404 - https://example.com/a/".
	Line string `json:"line"`
}

// key identifies a failure across runs.
func (f FailureRecord) key() string {
	return f.Check + "\x00" + f.Line
}

// failureRecords flattens the crawl failures and failing audit findings of report.
func failureRecords(report *model.RunReport) []FailureRecord {
	records := make([]FailureRecord, 0)

	add := func(check string, failures []model.Failure) {
		for _, f := range failures {
			records = append(records, FailureRecord{
				Check:      check,
				URL:        f.URL,
				Source:     f.Source,
				StatusCode: f.StatusCode,
				Message:    f.Message,
				Line:       f.String(),
			})
		}
	}
	if report.Status != nil {
		add("sitemap-status", report.Status.Failures)
	}
	if report.DeepCrawl != nil {
		add("deep-crawl", report.DeepCrawl.Failures)
	}

	for _, f := range report.Findings {
		if !f.Severity.Failing() {
			continue
		}
		line := f.Title
		if f.Value != "" {
			line += ": " + f.Value
		}
		records = append(records, FailureRecord{
			Check:   f.Check,
			URL:     f.Location,
			Message: f.SeverityText,
			Line:    line,
		})
	}
	return records
}

// SaveRun stores a run report and its failure lines in one transaction.
// It returns the new run ID.
func (r *RunDB) SaveRun(ctx context.Context, report *model.RunReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // Rollback after Commit is a no-op

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (site, started_at, duration_ms, passed, timed_out, checks_total, checks_failed,
		failure_count, warning_count, sitemap_urls, sitemap_digest, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Site,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.Duration.Milliseconds(),
		report.Passed(),
		report.TimedOut,
		len(report.Checks),
		len(report.FailedChecks()),
		len(report.Failures()),
		len(report.Warnings()),
		report.SitemapURLs,
		report.SitemapDigest,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO failures (run_id, check_name, url, source, status_code, message, line)
	VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare failure insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range failureRecords(report) {
		if _, err := stmt.ExecContext(ctx, runID, f.Check, f.URL, f.Source, f.StatusCode, f.Message, f.Line); err != nil {
			return 0, fmt.Errorf("failed to save failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

const runMetaColumns = `id, site, started_at, duration_ms, passed, timed_out, checks_total,
	checks_failed, failure_count, warning_count, sitemap_urls, sitemap_digest`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunMeta(row rowScanner) (RunMeta, error) {
	var (
		meta       RunMeta
		startedAt  string
		durationMs int64
		digest     sql.NullString
	)
	err := row.Scan(&meta.ID, &meta.Site, &startedAt, &durationMs, &meta.Passed, &meta.TimedOut,
		&meta.ChecksTotal, &meta.ChecksFailed, &meta.Failures, &meta.Warnings, &meta.SitemapURLs, &digest)
	if err != nil {
		return RunMeta{}, err
	}
	meta.StartedAt = parseTimestamp(startedAt)
	meta.Duration = time.Duration(durationMs) * time.Millisecond
	meta.SitemapDigest = digest.String
	return meta, nil
}

// ListRuns returns stored runs, newest first. An empty site lists all sites.
// A non-positive limit returns every run.
func (r *RunDB) ListRuns(ctx context.Context, site string, limit int) ([]RunMeta, error) {
	query := `SELECT ` + runMetaColumns + ` FROM runs`
	args := make([]any, 0, 2)
	if site != "" {
		query += ` WHERE site = ?`
		args = append(args, site)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunMeta, 0)
	for rows.Next() {
		meta, err := scanRunMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

// GetRunMeta returns the summary of one run.
func (r *RunDB) GetRunMeta(ctx context.Context, id int64) (RunMeta, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runMetaColumns+` FROM runs WHERE id = ?`, id)
	meta, err := scanRunMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunMeta{}, ErrRunNotFound
	}
	if err != nil {
		return RunMeta{}, fmt.Errorf("failed to get run: %w", err)
	}
	return meta, nil
}

// GetRun returns the full report of one run.
func (r *RunDB) GetRun(ctx context.Context, id int64) (*model.RunReport, error) {
	var reportJSON string
	err := r.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// GetFailures returns the failure lines of one run in stored order.
func (r *RunDB) GetFailures(ctx context.Context, runID int64) ([]FailureRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT check_name, url, source, status_code, message, line
	FROM failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	defer rows.Close()

	records := make([]FailureRecord, 0)
	for rows.Next() {
		var (
			f       FailureRecord
			source  sql.NullString
			status  sql.NullInt64
			message sql.NullString
		)
		if err := rows.Scan(&f.Check, &f.URL, &source, &status, &message, &f.Line); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Source = source.String
		f.StatusCode = int(status.Int64)
		f.Message = message.String
		records = append(records, f)
	}
	return records, rows.Err()
}

// ListSites returns every site with at least one stored run.
func (r *RunDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT site FROM runs ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := make([]string, 0)
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp parses a stored timestamp, returning the zero time when no
// format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
