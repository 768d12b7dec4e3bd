package installer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"univdl/internal/config"
	"univdl/internal/deps"
	"univdl/internal/logging"
	"univdl/internal/testsupport"
)

type fixture struct {
	cfg          *config.Config
	installer    *Installer
	hits         map[string]*atomic.Int32
	versionCalls atomic.Int32
}

// newFixture serves one artifact per tool from an httptest server and points
// the config's URL overrides at it.
func newFixture(t *testing.T, version func(deps.Tool, string) (string, error)) *fixture {
	t.Helper()
	testsupport.RequirePOSIXShell(t)
	artifacts := map[string][]byte{
		"/yt-dlp":      []byte("#!/bin/sh\necho yt-dlp\n"),
		"/ffmpeg.gz":   gzBytes(t, "ffmpeg-binary"),
		"/aria2.zip":   zipBytes(t, archiveEntry{name: "aria2/", dir: true}, archiveEntry{name: "aria2/aria2c", body: "aria2-binary"}),
		"/re.tar.gz":   tarGzBytes(t, archiveEntry{name: "N_m3u8DL-RE", body: "re-binary"}),
		"/missing.zip": nil,
	}
	f := &fixture{hits: map[string]*atomic.Int32{}}
	for path := range artifacts {
		f.hits[path] = &atomic.Int32{}
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := artifacts[r.URL.Path]
		if !ok || body == nil {
			http.NotFound(w, r)
			return
		}
		f.hits[r.URL.Path].Add(1)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	f.cfg = testsupport.NewConfig(t)
	f.cfg.Installer.URLs = map[string]string{
		"yt-dlp":      server.URL + "/yt-dlp",
		"ffmpeg":      server.URL + "/ffmpeg.gz",
		"aria2":       server.URL + "/aria2.zip",
		"n_m3u8dl-re": server.URL + "/re.tar.gz",
	}
	if version == nil {
		version = func(tool deps.Tool, _ string) (string, error) { return string(tool) + " 1.0", nil }
	}
	layout := deps.Layout{BinDir: f.cfg.Paths.BinDir, Platform: linuxX64, PathEnv: t.TempDir()}
	downloader := NewDownloader(f.cfg, logging.NewNop(),
		WithBackoff(func(int) time.Duration { return 0 }),
		WithProgressWriter(nil),
	)
	f.installer = New(f.cfg, logging.NewNop(),
		WithLayout(layout),
		WithDownloader(downloader),
		WithVersionCheck(func(_ context.Context, tool deps.Tool, path string) (string, error) {
			f.versionCalls.Add(1)
			return version(tool, path)
		}),
	)
	return f
}

func TestInstallAllPlacesEveryTool(t *testing.T) {
	f := newFixture(t, nil)
	binDir := f.cfg.Paths.BinDir
	foreign := filepath.Join(binDir, "my-notes.txt")
	testsupport.WriteText(t, foreign, "keep me")

	report, err := f.installer.InstallAll(context.Background(), Options{})
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	if !report.OK() || len(report.Results) != 4 || report.Region != config.RegionGlobal {
		t.Fatalf("unexpected report %+v", report)
	}
	want := map[string]string{
		"yt-dlp":      "#!/bin/sh\necho yt-dlp\n",
		"ffmpeg":      "ffmpeg-binary",
		"aria2c":      "aria2-binary",
		"N_m3u8DL-RE": "re-binary",
	}
	for name, body := range want {
		path := filepath.Join(binDir, name)
		if got := readString(t, path); got != body {
			t.Fatalf("%s: got %q", name, got)
		}
		info, err := os.Stat(path)
		if err != nil || info.Mode().Perm()&0o111 == 0 {
			t.Fatalf("%s is not executable: %v", name, err)
		}
	}
	for _, result := range report.Results {
		if result.Action != ActionInstalled || result.Version == "" || result.Bytes == 0 {
			t.Fatalf("unexpected result %+v", result)
		}
	}

	entries, err := os.ReadDir(binDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".staging-") {
			t.Fatalf("staging directory left behind: %s", entry.Name())
		}
	}
	if readString(t, foreign) != "keep me" {
		t.Fatal("unrelated files in bin must survive an install")
	}
}

func TestInstallAllSkipsPresentUnlessForced(t *testing.T) {
	f := newFixture(t, nil)
	testsupport.StubBinary(t, f.cfg.Paths.BinDir, "yt-dlp", "echo existing")

	report, err := f.installer.InstallAll(context.Background(), Options{Tools: []deps.Tool{deps.ToolYtDlp}})
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	if report.Results[0].Action != ActionPresent || f.hits["/yt-dlp"].Load() != 0 {
		t.Fatalf("present tool should not be downloaded: %+v", report.Results[0])
	}

	report, err = f.installer.InstallAll(context.Background(), Options{Force: true, Tools: []deps.Tool{deps.ToolYtDlp}})
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	if report.Results[0].Action != ActionInstalled || f.hits["/yt-dlp"].Load() != 1 {
		t.Fatalf("forced install should download: %+v", report.Results[0])
	}
}

func TestInstallAllRepairsBrokenBinaries(t *testing.T) {
	broken := true
	f := newFixture(t, func(tool deps.Tool, _ string) (string, error) {
		if broken {
			broken = false
			return "", errors.New("exec format error")
		}
		return "ffmpeg 6.0", nil
	})
	testsupport.StubBinary(t, f.cfg.Paths.BinDir, "ffmpeg", "exit 1")

	report, err := f.installer.InstallAll(context.Background(), Options{Repair: true, Tools: []deps.Tool{deps.ToolFFmpeg}})
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	result := report.Results[0]
	if result.Action != ActionRepaired || result.Version != "ffmpeg 6.0" {
		t.Fatalf("expected repair, got %+v", result)
	}
	if readString(t, filepath.Join(f.cfg.Paths.BinDir, "ffmpeg")) != "ffmpeg-binary" {
		t.Fatal("broken binary was not replaced")
	}
}

func TestInstallAllContinuesAfterFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.Installer.URLs["ffmpeg"] = strings.Replace(f.cfg.Installer.URLs["ffmpeg"], "/ffmpeg.gz", "/missing.zip", 1)

	report, err := f.installer.InstallAll(context.Background(), Options{})
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	if report.OK() {
		t.Fatal("report should fail when a required tool fails")
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Tool != deps.ToolFFmpeg || failed[0].Err == nil {
		t.Fatalf("unexpected failures %+v", failed)
	}
	if f.hits["/re.tar.gz"].Load() != 1 {
		t.Fatal("install should continue with later tools after a failure")
	}
}

func TestInstallAllSkipsOptionalWithoutSource(t *testing.T) {
	f := newFixture(t, nil)
	mac := deps.Layout{BinDir: f.cfg.Paths.BinDir, Platform: platformMacARM, PathEnv: t.TempDir()}
	delete(f.cfg.Installer.URLs, "aria2")
	f.installer.layout = mac

	report, err := f.installer.InstallAll(context.Background(), Options{Tools: []deps.Tool{deps.ToolAria2}})
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	if report.Results[0].Action != ActionSkipped || !report.OK() {
		t.Fatalf("expected optional skip, got %+v", report.Results[0])
	}
}

func TestInstallAllRefusesConcurrentRun(t *testing.T) {
	f := newFixture(t, nil)
	if err := os.MkdirAll(f.cfg.Paths.BinDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(f.cfg.Paths.BinDir, lockFileName))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-acquire lock: %v", err)
	}
	defer held.Unlock()

	if _, err := f.installer.InstallAll(context.Background(), Options{}); !errors.Is(err, ErrInstallRunning) {
		t.Fatalf("expected ErrInstallRunning, got %v", err)
	}
}

func TestStatusReportsBinPresence(t *testing.T) {
	f := newFixture(t, nil)
	testsupport.StubBinary(t, f.cfg.Paths.BinDir, "yt-dlp", "exit 0")

	status := f.installer.Status()
	if status.BinDir != f.cfg.Paths.BinDir || len(status.Tools) != 4 {
		t.Fatalf("unexpected status %+v", status)
	}
	if !status.Tools[0].Present || status.Tools[1].Present {
		t.Fatalf("unexpected presence %+v", status.Tools)
	}
	missing := status.Missing()
	if len(missing) != 3 || missing[0] != deps.ToolFFmpeg {
		t.Fatalf("unexpected missing %v", missing)
	}
}
