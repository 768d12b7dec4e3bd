package history_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"univdl/internal/history"
	"univdl/internal/testsupport"
)

func TestStartAndFinish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	rec, err := store.Start(ctx, history.Record{
		URL:          "https://example.com/watch?v=1",
		Engine:       "aria2",
		Threads:      16,
		CookieSource: "firefox",
		DownloadDir:  cfg.Paths.DownloadDir,
		LogPath:      filepath.Join(cfg.JobLogDir(), "x.log"),
		PID:          os.Getpid(),
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected generated id")
	}
	if rec.Status != history.StatusRunning || rec.FinishedAt != nil {
		t.Fatalf("unexpected running record: %+v", rec)
	}
	if rec.Threads != 16 || rec.Engine != "aria2" || rec.PID != os.Getpid() {
		t.Fatalf("fields not persisted: %+v", rec)
	}

	if err := store.Finish(ctx, rec.ID, history.StatusCompleted, 0, ""); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != history.StatusCompleted || got.FinishedAt == nil || got.ExitCode != 0 {
		t.Fatalf("unexpected finished record: %+v", got)
	}
	if got.Duration() < 0 {
		t.Fatalf("negative duration %v", got.Duration())
	}
}

func TestStartRequiresURL(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if _, err := store.Start(context.Background(), history.Record{Engine: "native"}); err == nil {
		t.Fatal("expected error when url missing")
	}
}

func TestFinishRejectsRunningAndUnknown(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if err := store.Finish(ctx, "missing", history.StatusFailed, 1, "boom"); err == nil {
		t.Fatal("expected error for unknown id")
	}
	rec, err := store.Start(ctx, history.Record{URL: "https://a", Engine: "native"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Finish(ctx, rec.ID, history.StatusRunning, 0, ""); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}

func TestGetByPrefixAndMissing(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	rec, err := store.Start(ctx, history.Record{ID: "abcdef12-0000", URL: "https://a", Engine: "re"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "abcdef")
	if err != nil || got == nil || got.ID != rec.ID {
		t.Fatalf("expected prefix lookup to find record, got %+v err=%v", got, err)
	}
	missing, err := store.Get(ctx, "zzzzzz")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing record, got %+v err=%v", missing, err)
	}
	if _, err := store.Start(ctx, history.Record{ID: "abcdef99-0000", URL: "https://b", Engine: "re"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "abcdef"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
}

func TestGetPrefixIsLiteral(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.Start(ctx, history.Record{ID: "abcdef12-0000", URL: "https://a", Engine: "native"}); err != nil {
		t.Fatal(err)
	}
	for _, prefix := range []string{"abc%", "abc_ef", "____"} {
		got, err := store.Get(ctx, prefix)
		if err != nil || got != nil {
			t.Fatalf("prefix %q should not match as a pattern, got %+v err=%v", prefix, got, err)
		}
	}
}

func TestListOrderingLimitAndFilter(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	var ids []string
	for i, status := range []history.Status{history.StatusCompleted, history.StatusFailed, history.StatusCompleted} {
		rec, err := store.Start(ctx, history.Record{URL: "https://example.com/" + string(rune('a'+i)), Engine: "native"})
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Finish(ctx, rec.ID, status, i, ""); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, rec.ID)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Fatalf("expected newest first, got %v", recordIDs(all))
	}
	limited, err := store.List(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("expected 2 records, got %d err=%v", len(limited), err)
	}
	failed, err := store.List(ctx, 0, history.StatusFailed)
	if err != nil || len(failed) != 1 || failed[0].ID != ids[1] {
		t.Fatalf("unexpected failed filter result %v err=%v", recordIDs(failed), err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats[history.StatusCompleted] != 2 || stats[history.StatusFailed] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestClearKeepsRunning(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	running, err := store.Start(ctx, history.Record{URL: "https://a", Engine: "native"})
	if err != nil {
		t.Fatal(err)
	}
	failed, _ := store.Start(ctx, history.Record{URL: "https://b", Engine: "native"})
	_ = store.Finish(ctx, failed.ID, history.StatusFailed, 1, "boom")
	done, _ := store.Start(ctx, history.Record{URL: "https://c", Engine: "native"})
	_ = store.Finish(ctx, done.ID, history.StatusCompleted, 0, "")

	n, err := store.Clear(ctx, history.StatusFailed)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 failed record cleared, got %d err=%v", n, err)
	}
	n, err = store.Clear(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 remaining terminal record cleared, got %d err=%v", n, err)
	}
	n, err = store.Clear(ctx, history.StatusRunning)
	if err != nil || n != 0 {
		t.Fatalf("running records must not be cleared, got %d err=%v", n, err)
	}
	if got, _ := store.Get(ctx, running.ID); got == nil {
		t.Fatal("running record should remain")
	}
}

func TestMarkInterrupted(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	alivePID, deadPID := 100, 200
	live, _ := store.Start(ctx, history.Record{URL: "https://a", Engine: "native", PID: alivePID})
	dead, _ := store.Start(ctx, history.Record{URL: "https://b", Engine: "native", PID: deadPID})
	orphan, _ := store.Start(ctx, history.Record{URL: "https://c", Engine: "native"})

	marked, err := store.MarkInterrupted(ctx, func(pid int) bool { return pid == alivePID })
	if err != nil {
		t.Fatalf("MarkInterrupted failed: %v", err)
	}
	if marked != 2 {
		t.Fatalf("expected 2 records marked, got %d", marked)
	}
	for _, id := range []string{dead.ID, orphan.ID} {
		rec, _ := store.Get(ctx, id)
		if rec.Status != history.StatusFailed || rec.ErrorMessage != history.InterruptedReason {
			t.Fatalf("expected interrupted failure, got %+v", rec)
		}
	}
	if rec, _ := store.Get(ctx, live.ID); rec.Status != history.StatusRunning {
		t.Fatalf("live record should stay running, got %s", rec.Status)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Start(context.Background(), history.Record{URL: "https://a", Engine: "native"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	records, err := reopened.List(context.Background(), 0)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected persisted record, got %d err=%v", len(records), err)
	}
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := history.OpenPath(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := history.ParseStatus(" Failed "); err != nil || s != history.StatusFailed {
		t.Fatalf("unexpected parse result %q err=%v", s, err)
	}
	if _, err := history.ParseStatus("pending"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func recordIDs(records []*history.Record) []string {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids
}
