package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewTeeHandlerDropsNilSinks(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every sink is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newTeeHandler(nil, inner); h != inner {
		t.Fatal("a single sink should be returned unwrapped")
	}
}

func TestTeeHandlerJobLogKeepsDebugLines(t *testing.T) {
	var console, job bytes.Buffer
	logger := slog.New(newTeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&job, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))
	logger.Debug("engine output", "line", "[download] 1.0%")
	logger.Info("download finished")

	if strings.Contains(console.String(), "engine output") {
		t.Fatalf("console should drop debug records, got %q", console.String())
	}
	if !strings.Contains(console.String(), "download finished") {
		t.Fatalf("console missing info record, got %q", console.String())
	}
	if !strings.Contains(job.String(), "engine output") || !strings.Contains(job.String(), "download finished") {
		t.Fatalf("job log should receive every record, got %q", job.String())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("tee should be enabled when the job log wants debug")
	}
}

func TestTeeHandlerAttrsAndGroupsReachEverySink(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(newTeeHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))).
		With(FieldJobID, "job-1").
		WithGroup("engine")
	logger.Info("started", "name", "aria2")

	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"job_id":"job-1"`) {
			t.Fatalf("expected job id attr, got %q", out)
		}
		if !strings.Contains(out, `"engine":{"name":"aria2"}`) {
			t.Fatalf("expected grouped attr, got %q", out)
		}
	}
}

type failingHandler struct{ NoopHandler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandlerKeepsWritingAfterSinkError(t *testing.T) {
	var console bytes.Buffer
	h := newTeeHandler(failingHandler{}, slog.NewJSONHandler(&console, nil))
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "download finished", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected the job log error to surface, got %v", err)
	}
	if !strings.Contains(console.String(), "download finished") {
		t.Fatalf("console should still get the record, got %q", console.String())
	}
}

func TestTeeLogger(t *testing.T) {
	var base, jobLog bytes.Buffer
	logger := TeeLogger(slog.New(slog.NewJSONHandler(&base, nil)), slog.NewJSONHandler(&jobLog, nil))
	logger.Info("hello")
	if !strings.Contains(base.String(), "hello") || !strings.Contains(jobLog.String(), "hello") {
		t.Fatalf("expected both outputs to receive record: %q / %q", base.String(), jobLog.String())
	}

	var only bytes.Buffer
	TeeLogger(nil, slog.NewJSONHandler(&only, nil)).Info("solo")
	if !strings.Contains(only.String(), "solo") {
		t.Fatalf("nil base should fall back to the job log, got %q", only.String())
	}
}
