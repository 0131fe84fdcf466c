package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Journal defines the scan journal operations.
type Journal interface {
	BeginScan(ctx context.Context, browser string, start, end int64) (*Scan, error)
	FinishScan(ctx context.Context, scan *Scan) error
	GetScan(ctx context.Context, id string) (*Scan, error)
	ListScans(ctx context.Context, query ScanQuery) ([]Scan, error)
	CountFinishedBefore(ctx context.Context, olderThan time.Time) (int64, error)
	PruneFinished(ctx context.Context, olderThan time.Time) (int64, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteJournal implements Journal backed by a SQLite database.
type SQLiteJournal struct {
	db *sql.DB

	// Prepared statements
	insertScan *sql.Stmt
	finishScan *sql.Stmt
	getScan    *sql.Stmt

	now func() time.Time
}

// NewSQLiteJournal creates a journal from an already-opened and migrated database.
func NewSQLiteJournal(db *sql.DB) (*SQLiteJournal, error) {
	j := &SQLiteJournal{db: db, now: time.Now}

	if err := j.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) prepareStatements() error {
	var err error

	j.insertScan, err = j.db.Prepare(`
		INSERT INTO scans (id, browser, state, window_start, window_end, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	j.finishScan, err = j.db.Prepare(`
		UPDATE scans SET state = ?, entries = ?, error = ?, finished_at = ?
		WHERE id = ? AND state = 'scanning'
	`)
	if err != nil {
		return err
	}

	j.getScan, err = j.db.Prepare(`
		SELECT id, browser, state, window_start, window_end, entries, error, started_at, finished_at
		FROM scans WHERE id = ?
	`)
	if err != nil {
		return err
	}

	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		timestampLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// timestampLayout is fixed-width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// BeginScan records a new scan in the scanning state and returns it.
func (j *SQLiteJournal) BeginScan(ctx context.Context, browser string, start, end int64) (*Scan, error) {
	scan := &Scan{
		ID:          uuid.NewString(),
		Browser:     browser,
		State:       ScanScanning,
		WindowStart: start,
		WindowEnd:   end,
		StartedAt:   j.now(),
	}

	_, err := j.insertScan.ExecContext(ctx,
		scan.ID, scan.Browser, string(scan.State), scan.WindowStart, scan.WindowEnd,
		formatTimestamp(scan.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}
	return scan, nil
}

// FinishScan moves a scanning record to its terminal state. scan.State
// must be succeeded or failed; FinishedAt is filled in.
func (j *SQLiteJournal) FinishScan(ctx context.Context, scan *Scan) error {
	if !scan.State.Terminal() {
		return fmt.Errorf("finish scan %s: state %q is not terminal", scan.ID, scan.State)
	}
	scan.FinishedAt = j.now()

	res, err := j.finishScan.ExecContext(ctx,
		string(scan.State), scan.Entries, scan.Error, formatTimestamp(scan.FinishedAt), scan.ID,
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("scan %s not found or already finished", scan.ID)
	}
	return nil
}

// GetScan retrieves a single scan by ID.
func (j *SQLiteJournal) GetScan(ctx context.Context, id string) (*Scan, error) {
	s, err := scanRow(j.getScan.QueryRowContext(ctx, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("scan %s not found", id)
		}
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*Scan, error) {
	var s Scan
	var state, startedAt string
	var finishedAt sql.NullString
	if err := row.Scan(
		&s.ID, &s.Browser, &state, &s.WindowStart, &s.WindowEnd,
		&s.Entries, &s.Error, &startedAt, &finishedAt,
	); err != nil {
		return nil, err
	}
	s.State = ScanState(state)
	s.StartedAt, _ = parseTimestamp(startedAt)
	if finishedAt.Valid {
		s.FinishedAt, _ = parseTimestamp(finishedAt.String)
	}
	return &s, nil
}

// ListScans returns scans matching q, newest first.
func (j *SQLiteJournal) ListScans(ctx context.Context, q ScanQuery) ([]Scan, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	var clauses []string
	var args []interface{}

	if q.Browser != "" {
		clauses = append(clauses, "browser = ?")
		args = append(args, q.Browser)
	}
	if q.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, string(q.State))
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, formatTimestamp(q.Since))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	query := `
		SELECT id, browser, state, window_start, window_end, entries, error, started_at, finished_at
		FROM scans` + where + " ORDER BY started_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	scans := []Scan{}
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scans = append(scans, *s)
	}
	return scans, rows.Err()
}

// CountFinishedBefore counts terminal scans that started before olderThan.
func (j *SQLiteJournal) CountFinishedBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scans WHERE state IN ('succeeded', 'failed') AND started_at < ?",
		formatTimestamp(olderThan),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count prunable scans: %w", err)
	}
	return n, nil
}

// PruneFinished deletes terminal scans that started before olderThan.
// Scans still in progress are kept.
func (j *SQLiteJournal) PruneFinished(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		"DELETE FROM scans WHERE state IN ('succeeded', 'failed') AND started_at < ?",
		formatTimestamp(olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("prune scans: %w", err)
	}
	return res.RowsAffected()
}

// GetStats returns aggregate statistics about the journal.
func (j *SQLiteJournal) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(state = 'succeeded'), 0),
		       COALESCE(SUM(state = 'failed'), 0),
		       COALESCE(SUM(state = 'scanning'), 0)
		FROM scans
	`).Scan(&stats.TotalScans, &stats.Succeeded, &stats.Failed, &stats.InProgress)
	if err != nil {
		return nil, fmt.Errorf("count scans: %w", err)
	}

	if stats.TotalScans > 0 {
		var oldest, newest string
		err = j.db.QueryRowContext(ctx, "SELECT MIN(started_at), MAX(started_at) FROM scans").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("scan time range: %w", err)
		}
		stats.OldestScan, _ = parseTimestamp(oldest)
		stats.NewestScan, _ = parseTimestamp(newest)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT browser,
		       COUNT(*),
		       COALESCE(SUM(state = 'failed'), 0),
		       COALESCE(SUM(entries), 0),
		       MAX(CASE WHEN state = 'succeeded' THEN finished_at END)
		FROM scans
		GROUP BY browser
		ORDER BY browser
	`)
	if err != nil {
		return nil, fmt.Errorf("per-browser stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bs BrowserStats
		var lastSuccess sql.NullString
		if err := rows.Scan(&bs.Browser, &bs.Scans, &bs.Failed, &bs.Entries, &lastSuccess); err != nil {
			return nil, err
		}
		if lastSuccess.Valid {
			bs.LastSuccess, _ = parseTimestamp(lastSuccess.String)
		}
		stats.Browsers = append(stats.Browsers, bs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.DatabaseSizeBytes = j.databaseSize(ctx)
	return stats, nil
}

// databaseSize reports page_count * page_size, or 0 if unavailable.
func (j *SQLiteJournal) databaseSize(ctx context.Context) int64 {
	var pageCount, pageSize int64
	if err := j.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := j.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (j *SQLiteJournal) Close() error {
	for _, stmt := range []*sql.Stmt{j.insertScan, j.finishScan, j.getScan} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
