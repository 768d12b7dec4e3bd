package main

import (
	"encoding/json"
	"io"
	"time"

	"univdl/internal/history"
)

// recordJSON is the stable shape of a history record in --json output.
type recordJSON struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Status          string     `json:"status"`
	Engine          string     `json:"engine"`
	Threads         int        `json:"threads"`
	CookieSource    string     `json:"cookie_source"`
	DownloadDir     string     `json:"download_dir"`
	ExitCode        int        `json:"exit_code"`
	Error           string     `json:"error,omitempty"`
	LogPath         string     `json:"log_path,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
}

func toRecordJSON(rec *history.Record) recordJSON {
	return recordJSON{
		ID:              rec.ID,
		URL:             rec.URL,
		Status:          string(rec.Status),
		Engine:          rec.Engine,
		Threads:         rec.Threads,
		CookieSource:    rec.CookieSource,
		DownloadDir:     rec.DownloadDir,
		ExitCode:        rec.ExitCode,
		Error:           rec.ErrorMessage,
		LogPath:         rec.LogPath,
		StartedAt:       rec.CreatedAt,
		FinishedAt:      rec.FinishedAt,
		DurationSeconds: rec.Duration().Round(time.Millisecond).Seconds(),
	}
}

// writeRecordsJSON prints records as an indented JSON array. An empty history
// prints [] rather than null.
func writeRecordsJSON(w io.Writer, records []*history.Record) error {
	views := make([]recordJSON, 0, len(records))
	for _, rec := range records {
		views = append(views, toRecordJSON(rec))
	}
	return writeJSON(w, views)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
