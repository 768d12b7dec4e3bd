package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const recordColumns = "id, url, engine, threads, cookie_source, download_dir, status, exit_code, error_message, log_path, pid, created_at, updated_at, finished_at"

// Start records a running download. An empty ID is replaced with a new UUID.
func (s *Store) Start(ctx context.Context, rec Record) (*Record, error) {
	if strings.TrimSpace(rec.URL) == "" {
		return nil, errors.New("history: url required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	timestamp := time.Now().UTC().Format(timestampLayout)

	_, err := s.exec(ctx,
		`INSERT INTO downloads (
            id, url, engine, threads, cookie_source, download_dir,
            status, log_path, pid, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.URL,
		rec.Engine,
		rec.Threads,
		nullableString(rec.CookieSource),
		nullableString(rec.DownloadDir),
		StatusRunning,
		nullableString(rec.LogPath),
		nullableInt(rec.PID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert download: %w", err)
	}
	return s.Get(ctx, rec.ID)
}

// Finish moves a record to a terminal status.
func (s *Store) Finish(ctx context.Context, id string, status Status, exitCode int, message string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("history: %q is not a terminal status", status)
	}
	timestamp := time.Now().UTC().Format(timestampLayout)
	res, err := s.exec(ctx,
		`UPDATE downloads
            SET status = ?, exit_code = ?, error_message = ?, updated_at = ?, finished_at = ?
          WHERE id = ?`,
		status, exitCode, nullableString(message), timestamp, timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("finish download: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish download: no record with id %q", id)
	}
	return nil
}

// Get returns the record with the given ID, or nil when it does not exist.
// A unique ID prefix is accepted as well.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM downloads WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get download: %w", err)
	}
	if len(id) < 4 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM downloads WHERE substr(id, 1, ?) = ? LIMIT 2`, utf8.RuneCountInString(id), id)
	if err != nil {
		return nil, fmt.Errorf("get download by prefix: %w", err)
	}
	defer rows.Close()
	matches, err := collect(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("get download: id prefix %q is ambiguous", id)
	}
}

// List returns the newest records first. A limit of zero returns every
// record; statuses filter when given.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Record, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + recordColumns + ` FROM downloads`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// Clear deletes finished records. With no statuses every terminal record is
// removed; running records are never deleted.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusCompleted, StatusFailed, StatusStopped}
	}
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		if !status.IsTerminal() {
			continue
		}
		args = append(args, status)
	}
	if len(args) == 0 {
		return 0, nil
	}
	res, err := s.exec(ctx, `DELETE FROM downloads WHERE status IN (`+makePlaceholders(len(args))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("clear downloads: %w", err)
	}
	return res.RowsAffected()
}

// MarkInterrupted fails running records whose process is gone. alive reports
// whether a PID still exists; records without a PID are always marked.
func (s *Store) MarkInterrupted(ctx context.Context, alive func(pid int) bool) (int64, error) {
	running, err := s.List(ctx, 0, StatusRunning)
	if err != nil {
		return 0, err
	}
	var marked int64
	for _, rec := range running {
		if rec.PID > 0 && alive != nil && alive(rec.PID) {
			continue
		}
		if err := s.Finish(ctx, rec.ID, StatusFailed, -1, InterruptedReason); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// Stats counts records per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM downloads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func collect(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
