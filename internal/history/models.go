package history

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a download record.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// InterruptedReason is the error message stored on records whose process
// disappeared while still running.
const InterruptedReason = "interrupted"

var allStatuses = []Status{StatusRunning, StatusCompleted, StatusFailed, StatusStopped}

// ParseStatus converts a user-supplied status name.
func ParseStatus(value string) (Status, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, status := range allStatuses {
		if string(status) == value {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

// Record is a single download job.
type Record struct {
	ID           string
	URL          string
	Engine       string
	Threads      int
	CookieSource string
	DownloadDir  string
	Status       Status
	ExitCode     int
	ErrorMessage string
	LogPath      string
	PID          int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// Duration returns the wall time of a finished record, or the time elapsed so
// far for a running one.
func (r *Record) Duration() time.Duration {
	if r == nil || r.CreatedAt.IsZero() {
		return 0
	}
	end := time.Now()
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	return end.Sub(r.CreatedAt)
}
