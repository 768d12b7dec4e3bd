package installer_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"univdl/internal/installer"
	"univdl/internal/logging"
	"univdl/internal/services"
	"univdl/internal/testsupport"
)

func newDownloader(t *testing.T) *installer.Downloader {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return installer.NewDownloader(cfg, logging.NewNop(),
		installer.WithBackoff(func(int) time.Duration { return 0 }),
		installer.WithProgressWriter(nil),
	)
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	payload := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "asset"), 70*1024)
	var calls atomic.Int32
	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.UserAgent())
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "yt-dlp")
	written, err := newDownloader(t).Fetch(context.Background(), server.URL+"/yt-dlp", dest, "yt-dlp")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if written != int64(len(payload)) || calls.Load() != 2 {
		t.Fatalf("written=%d calls=%d", written, calls.Load())
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != string(payload) {
		t.Fatalf("downloaded content mismatch: %v", err)
	}
	if _, err := os.Stat(dest + ".part"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial file left behind: %v", err)
	}
	if agent.Load() != "Mozilla/5.0 (univdl installer)" {
		t.Fatalf("unexpected user agent %v", agent.Load())
	}
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newDownloader(t).Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "x"), "x")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newDownloader(t).Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "x"), "x")
	if !errors.Is(err, services.ErrNotFound) || calls.Load() != 1 {
		t.Fatalf("expected single ErrNotFound attempt, got %v after %d calls", err, calls.Load())
	}
}

func TestFetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newDownloader(t).Fetch(ctx, "http://127.0.0.1:1/never", filepath.Join(t.TempDir(), "x"), "x")
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}
