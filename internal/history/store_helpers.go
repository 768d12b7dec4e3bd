package history

import (
	"database/sql"
	"errors"
	"time"
)

// Fixed-width so lexical order matches chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec          Record
		statusStr    string
		cookieSource sql.NullString
		downloadDir  sql.NullString
		exitCode     sql.NullInt64
		errorMessage sql.NullString
		logPath      sql.NullString
		pid          sql.NullInt64
		createdRaw   string
		updatedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.URL,
		&rec.Engine,
		&rec.Threads,
		&cookieSource,
		&downloadDir,
		&statusStr,
		&exitCode,
		&errorMessage,
		&logPath,
		&pid,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	rec.Status = Status(statusStr)
	rec.CookieSource = cookieSource.String
	rec.DownloadDir = downloadDir.String
	rec.ExitCode = int(exitCode.Int64)
	rec.ErrorMessage = errorMessage.String
	rec.LogPath = logPath.String
	rec.PID = int(pid.Int64)
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			rec.FinishedAt = &finished
		}
	}
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value <= 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
