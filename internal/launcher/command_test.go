package launcher_test

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"univdl/internal/config"
	"univdl/internal/deps"
	"univdl/internal/launcher"
	"univdl/internal/platform"
	"univdl/internal/services"
	"univdl/internal/testsupport"
)

const testURL = "https://www.example.com/watch?v=abc"

func newLayout(t *testing.T, binaries ...string) deps.Layout {
	t.Helper()
	testsupport.RequirePOSIXShell(t)
	binDir := filepath.Join(t.TempDir(), "bin")
	for _, name := range binaries {
		testsupport.StubBinary(t, binDir, name, "exit 0")
	}
	return deps.Layout{
		BinDir:   binDir,
		Platform: platform.Platform{OS: platform.OSLinux, Arch: platform.ArchX64},
		PathEnv:  t.TempDir(),
	}
}

func baseRequest(engine launcher.Engine) launcher.Request {
	return launcher.Request{
		URL:          testURL,
		DownloadDir:  "/tmp/videos",
		Engine:       engine,
		Threads:      8,
		CookieSource: config.CookieSourceNone,
	}
}

func TestBuildCommandNative(t *testing.T) {
	layout := newLayout(t, "yt-dlp")
	cmd, err := launcher.BuildCommand(baseRequest(launcher.EngineNative), layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if cmd.Binary != filepath.Join(layout.BinDir, "yt-dlp") {
		t.Fatalf("expected vendored yt-dlp, got %q", cmd.Binary)
	}
	want := []string{"-P", "/tmp/videos", "--merge-output-format", "mp4", "--retries", "10", "-f", "bv+ba/b", testURL}
	if !slices.Equal(cmd.Args, want) {
		t.Fatalf("args mismatch\n got: %q\nwant: %q", cmd.Args, want)
	}
	if len(cmd.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", cmd.Warnings)
	}
}

func TestBuildCommandFallsBackToBareYtDlp(t *testing.T) {
	layout := newLayout(t)
	cmd, err := launcher.BuildCommand(baseRequest(launcher.EngineNative), layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if cmd.Binary != "yt-dlp" {
		t.Fatalf("expected bare yt-dlp, got %q", cmd.Binary)
	}
}

func TestBuildCommandAria2(t *testing.T) {
	layout := newLayout(t, "yt-dlp", "aria2c", "ffmpeg")
	req := baseRequest(launcher.EngineAria2)
	req.Threads = 12
	cmd, err := launcher.BuildCommand(req, layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	joined := strings.Join(cmd.Args, " ")
	if !strings.Contains(joined, "--downloader aria2c --downloader-args aria2c:-x 12 -k 1M") {
		t.Fatalf("missing aria2 downloader args: %q", cmd.Args)
	}
	if !strings.Contains(joined, "--ffmpeg-location "+filepath.Join(layout.BinDir, "ffmpeg")) {
		t.Fatalf("missing ffmpeg location: %q", cmd.Args)
	}
	if cmd.Args[len(cmd.Args)-1] != testURL {
		t.Fatalf("url must be the last argument, got %q", cmd.Args)
	}
}

func TestBuildCommandCapsAria2Connections(t *testing.T) {
	layout := newLayout(t, "yt-dlp")
	req := baseRequest(launcher.EngineAria2)
	req.Threads = 64
	cmd, err := launcher.BuildCommand(req, layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if !slices.Contains(cmd.Args, "aria2c:-x 16 -k 1M") {
		t.Fatalf("expected connections capped at 16, got %q", cmd.Args)
	}
}

func TestBuildCommandCookies(t *testing.T) {
	layout := newLayout(t, "yt-dlp")

	browser := baseRequest(launcher.EngineNative)
	browser.CookieSource = platform.BrowserFirefox
	cmd, err := launcher.BuildCommand(browser, layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if !strings.Contains(strings.Join(cmd.Args, " "), "--cookies-from-browser firefox") {
		t.Fatalf("expected browser cookies, got %q", cmd.Args)
	}

	file := baseRequest(launcher.EngineNative)
	file.CookieSource = config.CookieSourceFile
	file.CookieFile = "/tmp/cookies.txt"
	cmd, err = launcher.BuildCommand(file, layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if !strings.Contains(strings.Join(cmd.Args, " "), "--cookies /tmp/cookies.txt") {
		t.Fatalf("expected cookie file, got %q", cmd.Args)
	}

	missing := baseRequest(launcher.EngineNative)
	missing.CookieSource = config.CookieSourceFile
	cmd, err = launcher.BuildCommand(missing, layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if slices.Contains(cmd.Args, "--cookies") || len(cmd.Warnings) != 1 {
		t.Fatalf("expected guest downgrade with warning, got args=%q warnings=%v", cmd.Args, cmd.Warnings)
	}
}

func TestBuildCommandClampsThreads(t *testing.T) {
	layout := newLayout(t, "N_m3u8DL-RE")
	req := baseRequest(launcher.EngineRE)
	req.Threads = 500
	cmd, err := launcher.BuildCommand(req, layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if cmd.Request.Threads != 64 || !slices.Contains(cmd.Args, "64") {
		t.Fatalf("expected 64 threads, got %d (%q)", cmd.Request.Threads, cmd.Args)
	}
}

func TestBuildCommandRE(t *testing.T) {
	layout := newLayout(t, "N_m3u8DL-RE", "ffmpeg")
	cmd, err := launcher.BuildCommand(baseRequest(launcher.EngineRE), layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	want := []string{
		testURL,
		"--save-dir", "/tmp/videos",
		"--thread-count", "8",
		"--auto-select",
		"--no-log",
		"--ffmpeg-binary-path", filepath.Join(layout.BinDir, "ffmpeg"),
	}
	if !slices.Equal(cmd.Args, want) {
		t.Fatalf("args mismatch\n got: %q\nwant: %q", cmd.Args, want)
	}
}

func TestBuildCommandRERequiresBinary(t *testing.T) {
	layout := newLayout(t, "yt-dlp")
	_, err := launcher.BuildCommand(baseRequest(launcher.EngineRE), layout)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildCommandRECookieHeader(t *testing.T) {
	layout := newLayout(t, "N_m3u8DL-RE")
	cookieFile := filepath.Join(t.TempDir(), "cookies.txt")
	testsupport.WriteText(t, cookieFile, "# Netscape HTTP Cookie File\n"+
		".example.com\tTRUE\t/\tTRUE\t0\tSID\ts3cr3t\n"+
		".other.org\tTRUE\t/\tFALSE\t0\tNOPE\tzzz\n")

	req := baseRequest(launcher.EngineRE)
	req.CookieSource = config.CookieSourceFile
	req.CookieFile = cookieFile
	cmd, err := launcher.BuildCommand(req, layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	idx := slices.Index(cmd.Args, "--header")
	if idx < 0 || cmd.Args[idx+1] != "Cookie: SID=s3cr3t" {
		t.Fatalf("expected cookie header, got %q", cmd.Args)
	}
	if strings.Contains(cmd.String(), "s3cr3t") {
		t.Fatalf("cookie value leaked into printable command: %s", cmd.String())
	}
	if !strings.Contains(cmd.String(), "'Cookie: <redacted>'") {
		t.Fatalf("expected redacted header, got %s", cmd.String())
	}
}

func TestBuildCommandREDowngradesBrowserCookies(t *testing.T) {
	layout := newLayout(t, "N_m3u8DL-RE")
	req := baseRequest(launcher.EngineRE)
	req.CookieSource = platform.BrowserChrome
	cmd, err := launcher.BuildCommand(req, layout)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if len(cmd.Warnings) != 1 || cmd.Request.CookieSource != config.CookieSourceNone {
		t.Fatalf("expected guest downgrade, got source=%q warnings=%v", cmd.Request.CookieSource, cmd.Warnings)
	}
	if slices.Contains(cmd.Args, "--header") {
		t.Fatalf("unexpected header: %q", cmd.Args)
	}
}

func TestBuildCommandValidation(t *testing.T) {
	layout := newLayout(t, "yt-dlp")
	cases := map[string]func(*launcher.Request){
		"empty url":   func(r *launcher.Request) { r.URL = "  " },
		"ftp url":     func(r *launcher.Request) { r.URL = "ftp://example.com/file" },
		"no host":     func(r *launcher.Request) { r.URL = "https://" },
		"no dir":      func(r *launcher.Request) { r.DownloadDir = "" },
		"bad engine":  func(r *launcher.Request) { r.Engine = "wget" },
		"bad cookies": func(r *launcher.Request) { r.CookieSource = "opera" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := baseRequest(launcher.EngineNative)
			mutate(&req)
			if _, err := launcher.BuildCommand(req, layout); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestParseEngineAliases(t *testing.T) {
	cases := map[string]launcher.Engine{
		"native":      launcher.EngineNative,
		"yt-dlp":      launcher.EngineNative,
		"YTDLP":       launcher.EngineNative,
		"aria2c":      launcher.EngineAria2,
		"N_m3u8DL-RE": launcher.EngineRE,
		" re ":        launcher.EngineRE,
	}
	for input, want := range cases {
		got, err := launcher.ParseEngine(input)
		if err != nil || got != want {
			t.Fatalf("ParseEngine(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := launcher.ParseEngine("curl"); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestRequestFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEngine(config.EngineAria2))
	req := launcher.RequestFromConfig(cfg, testURL)
	if req.Engine != launcher.EngineAria2 || req.DownloadDir != cfg.Paths.DownloadDir || req.Threads != cfg.Download.Threads {
		t.Fatalf("unexpected request %+v", req)
	}
}
