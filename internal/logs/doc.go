// Package logs reads the per-job log files the launcher writes.
//
// Tail returns the last lines of a job log with bounded memory usage, and
// Follow polls the file for new lines until the download finishes, so
// `univdl history log --follow` can watch a download running in another
// terminal. FormatRecord renders the JSON records for humans.
package logs
