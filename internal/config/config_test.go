package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"univdl/internal/config"
	"univdl/internal/platform"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("UNIVDL_BIN_DIR", "")
	t.Setenv("UNIVDL_DOWNLOAD_DIR", "")
	t.Setenv("UNIVDL_COOKIE_FILE", "")
	t.Chdir(home)
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.DownloadDir != filepath.Join(home, "Downloads") {
		t.Fatalf("unexpected download dir: %q", cfg.Paths.DownloadDir)
	}
	if cfg.Paths.StateDir != filepath.Join(home, ".local", "share", "univdl", "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if !filepath.IsAbs(cfg.Paths.BinDir) {
		t.Fatalf("expected absolute bin dir, got %q", cfg.Paths.BinDir)
	}
	if cfg.Download.Engine != config.EngineNative {
		t.Fatalf("unexpected engine %q", cfg.Download.Engine)
	}
	if cfg.Download.Threads != 8 {
		t.Fatalf("unexpected threads %d", cfg.Download.Threads)
	}
	if cfg.Download.CookieSource != platform.Current().DefaultCookieSource() {
		t.Fatalf("unexpected cookie source %q", cfg.Download.CookieSource)
	}
	if !cfg.Download.CheckOutput {
		t.Fatal("expected output checking enabled by default")
	}
	if cfg.Installer.Region != config.RegionAuto || cfg.Installer.Retries != 3 {
		t.Fatalf("unexpected installer defaults: %+v", cfg.Installer)
	}
	if cfg.Lang != config.LangAuto {
		t.Fatalf("unexpected lang %q", cfg.Lang)
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "custom.toml")
	content := `
lang = "ZH"

[paths]
bin_dir = "~/tools/bin"
download_dir = "~/media"

[download]
engine = "yt-dlp"
threads = 200
cookie_source = "file"
cookie_file = "~/cookies.txt"

[installer]
region = "CN"
mirror_prefix = "https://mirror.example"

[installer.urls]
FFmpeg = "https://example.com/ffmpeg.zip"

[logging]
format = "JSON"
level = "warning"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.BinDir != filepath.Join(home, "tools", "bin") {
		t.Fatalf("unexpected bin dir %q", cfg.Paths.BinDir)
	}
	if cfg.Download.Engine != config.EngineNative {
		t.Fatalf("expected yt-dlp alias to map to native, got %q", cfg.Download.Engine)
	}
	if cfg.Download.Threads != 64 {
		t.Fatalf("expected threads clamped to 64, got %d", cfg.Download.Threads)
	}
	if cfg.Download.CookieFile != filepath.Join(home, "cookies.txt") {
		t.Fatalf("unexpected cookie file %q", cfg.Download.CookieFile)
	}
	if cfg.Installer.Region != config.RegionCN {
		t.Fatalf("unexpected region %q", cfg.Installer.Region)
	}
	if cfg.Installer.MirrorPrefix != "https://mirror.example/" {
		t.Fatalf("expected trailing slash on mirror prefix, got %q", cfg.Installer.MirrorPrefix)
	}
	if cfg.Installer.URLs["ffmpeg"] != "https://example.com/ffmpeg.zip" {
		t.Fatalf("expected lowercased url override, got %v", cfg.Installer.URLs)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Lang != "zh" {
		t.Fatalf("unexpected lang %q", cfg.Lang)
	}
}

func TestEnvVarsFillKeysTheFileLeavesUnset(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte("[paths]\nbin_dir = \"/from/file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cookieFile := filepath.Join(home, "env-cookies.txt")
	t.Setenv("UNIVDL_BIN_DIR", filepath.Join(home, "envbin"))
	t.Setenv("UNIVDL_DOWNLOAD_DIR", filepath.Join(home, "dl"))
	t.Setenv("UNIVDL_COOKIE_FILE", cookieFile)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if want, _ := filepath.Abs("/from/file"); cfg.Paths.BinDir != want {
		t.Fatalf("file value should win over env, got %q", cfg.Paths.BinDir)
	}
	if cfg.Paths.DownloadDir != filepath.Join(home, "dl") {
		t.Fatalf("expected env download dir, got %q", cfg.Paths.DownloadDir)
	}
	if cfg.Download.CookieFile != cookieFile {
		t.Fatalf("expected env cookie file, got %q", cfg.Download.CookieFile)
	}
	if cfg.Download.CookieSource != config.CookieSourceFile {
		t.Fatalf("env cookie file should select the file source, got %q", cfg.Download.CookieSource)
	}
}

func TestEnvCookieFileKeepsExplicitSource(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte("[download]\ncookie_source = \"none\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("UNIVDL_COOKIE_FILE", filepath.Join(home, "env-cookies.txt"))

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Download.CookieSource != config.CookieSourceNone {
		t.Fatalf("explicit cookie_source should stay, got %q", cfg.Download.CookieSource)
	}
}

func TestSetRoundTrip(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "conf", "config.toml")

	if _, err := config.Set(path, "lang", "zh"); err != nil {
		t.Fatalf("set lang: %v", err)
	}
	if _, err := config.Set(path, "download.threads", "12"); err != nil {
		t.Fatalf("set threads: %v", err)
	}
	if _, err := config.Set(path, "download.check_output", "false"); err != nil {
		t.Fatalf("set check_output: %v", err)
	}
	cfg, err := config.Set(path, "paths.download_dir", "~/Videos")
	if err != nil {
		t.Fatalf("set download dir: %v", err)
	}
	if cfg.Paths.DownloadDir != filepath.Join(home, "Videos") {
		t.Fatalf("returned config not expanded: %q", cfg.Paths.DownloadDir)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("reload: exists=%v err=%v", exists, err)
	}
	if loaded.Lang != "zh" || loaded.Download.Threads != 12 || loaded.Download.CheckOutput {
		t.Fatalf("values not persisted: lang=%q threads=%d check=%v", loaded.Lang, loaded.Download.Threads, loaded.Download.CheckOutput)
	}
	if loaded.Paths.DownloadDir != filepath.Join(home, "Videos") {
		t.Fatalf("download dir not persisted: %q", loaded.Paths.DownloadDir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("written file is not TOML: %v", err)
	}
	if _, ok := raw["installer"]; ok {
		t.Fatalf("unset sections should not be written:\n%s", data)
	}
	if matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".config-*.tmp")); len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestSetRejectsInvalidValues(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "config.toml")
	original := "lang = \"en\"\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cases := []struct{ key, value string }{
		{"download.engine", "wget"},
		{"download.threads", "many"},
		{"download.check_output", "maybe"},
		{"lang", "fr"},
		{"no.such_key", "x"},
	}
	for _, tc := range cases {
		if _, err := config.Set(path, tc.key, tc.value); err == nil {
			t.Fatalf("expected error for %s=%s", tc.key, tc.value)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != original {
		t.Fatalf("rejected values must not rewrite the file, got:\n%s", data)
	}
}

func TestSanitizeCookieSource(t *testing.T) {
	current := platform.Current()
	for _, browser := range []string{platform.BrowserChrome, platform.BrowserEdge, platform.BrowserFirefox, platform.BrowserSafari} {
		got := config.SanitizeCookieSource(strings.ToUpper(browser))
		if current.SupportsBrowser(browser) && got != browser {
			t.Errorf("supported browser %q sanitized to %q", browser, got)
		}
		if !current.SupportsBrowser(browser) && got != config.CookieSourceNone {
			t.Errorf("unsupported browser %q should become none, got %q", browser, got)
		}
	}
	if got := config.SanitizeCookieSource(" guest "); got != config.CookieSourceNone {
		t.Errorf("guest should map to none, got %q", got)
	}
	if got := config.SanitizeCookieSource("File"); got != config.CookieSourceFile {
		t.Errorf("file should stay file, got %q", got)
	}
}

func TestClampThreads(t *testing.T) {
	cases := map[int]int{-3: 8, 0: 8, 1: 1, 16: 16, 64: 64, 65: 64}
	for in, want := range cases {
		if got := config.ClampThreads(in); got != want {
			t.Errorf("ClampThreads(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCreateSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed map[string]any
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if _, ok := parsed["download"]; !ok {
		t.Fatal("sample config missing [download] section")
	}

	isolateEnv(t)
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists || cfg.Download.Engine != config.EngineNative {
		t.Fatalf("unexpected sample load: exists=%v engine=%q", exists, cfg.Download.Engine)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	isolateEnv(t)
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"engine", func(c *config.Config) { c.Download.Engine = "wget" }, "download.engine"},
		{"threads", func(c *config.Config) { c.Download.Threads = 100 }, "download.threads"},
		{"cookie source", func(c *config.Config) { c.Download.CookieSource = "opera" }, "download.cookie_source"},
		{"cookie file", func(c *config.Config) {
			c.Download.CookieSource = config.CookieSourceFile
			c.Download.CookieFile = ""
		}, "download.cookie_file"},
		{"region", func(c *config.Config) { c.Installer.Region = "eu" }, "installer.region"},
		{"mirror", func(c *config.Config) { c.Installer.MirrorPrefix = "ftp://x/" }, "installer.mirror_prefix"},
		{"url override", func(c *config.Config) { c.Installer.URLs = map[string]string{"wget": "https://x"} }, "installer.urls"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"lang", func(c *config.Config) { c.Lang = "fr" }, "lang"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, _, err := config.Load("")
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BinDir = filepath.Join(base, "bin")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.BinDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
