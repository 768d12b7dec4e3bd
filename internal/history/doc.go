// Package history persists download jobs in SQLite so the CLI can list past
// downloads, show their logs, and recover from interrupted runs.
//
// The Store manages the database connection, schema initialization, and the
// small lifecycle each record goes through: a job is recorded as running when
// its engine starts and finished as completed, failed, or stopped when the
// engine exits. Records left running by a process that no longer exists are
// marked failed on the next start.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package history
