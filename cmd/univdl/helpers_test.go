package main

import (
	"testing"

	"univdl/internal/config"
	"univdl/internal/history"
	"univdl/internal/launcher"
	"univdl/internal/testsupport"
)

func TestBuildDownloadRequestAppliesFlags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cmd := newDownloadCommand(newCommandContext(nil, nil))
	if err := cmd.ParseFlags([]string{"-e", "aria2c", "-t", "200", "--cookie-file", "/tmp/c.txt", "-o", "/tmp/out", "--no-check"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	flags := downloadFlags{engine: "aria2c", threads: 200, cookieFile: "/tmp/c.txt", dir: "/tmp/out", noCheck: true}

	req, effective, err := buildDownloadRequest(cmd, cfg, "https://example.com/v", flags)
	if err != nil {
		t.Fatalf("buildDownloadRequest: %v", err)
	}
	if req.Engine != launcher.EngineAria2 {
		t.Fatalf("engine = %q", req.Engine)
	}
	if req.Threads != 64 {
		t.Fatalf("threads should clamp to 64, got %d", req.Threads)
	}
	if req.CookieSource != config.CookieSourceFile || req.CookieFile != "/tmp/c.txt" {
		t.Fatalf("cookie flags not applied: %+v", req)
	}
	if effective.Paths.DownloadDir != "/tmp/out" || effective.Download.CheckOutput {
		t.Fatalf("effective config not updated: %+v", effective.Download)
	}
	if !cfg.Download.CheckOutput {
		t.Fatal("flags must not mutate the loaded config")
	}
}

func TestBuildDownloadRequestKeepsDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEngine(config.EngineRE))
	cmd := newDownloadCommand(newCommandContext(nil, nil))
	req, _, err := buildDownloadRequest(cmd, cfg, "https://example.com/v", downloadFlags{})
	if err != nil {
		t.Fatalf("buildDownloadRequest: %v", err)
	}
	if req.Engine != launcher.EngineRE || req.Threads != cfg.Download.Threads || req.DownloadDir != cfg.Paths.DownloadDir {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestParseStatuses(t *testing.T) {
	got, err := parseStatuses([]string{"Failed", "stopped"})
	if err != nil {
		t.Fatalf("parseStatuses: %v", err)
	}
	if len(got) != 2 || got[0] != history.StatusFailed || got[1] != history.StatusStopped {
		t.Fatalf("unexpected statuses %v", got)
	}
	if _, err := parseStatuses([]string{"nope"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("got %q", got)
	}
}
