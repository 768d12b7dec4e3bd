package testsupport

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"univdl/internal/config"
	"univdl/internal/platform"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BinDir = filepath.Join(base, "bin")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Download.CookieSource = config.CookieSourceNone
	cfgVal.Installer.Region = config.RegionGlobal

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithEngine sets the default download engine.
func WithEngine(engine string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Download.Engine = engine
	}
}

// WithCookieFile writes contents to a cookies.txt under the temp dir and
// selects it as the cookie source.
func WithCookieFile(contents string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "cookies.txt")
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			b.t.Fatalf("write cookie file: %v", err)
		}
		b.cfg.Download.CookieSource = config.CookieSourceFile
		b.cfg.Download.CookieFile = path
	}
}

// WithStubbedBinaries writes stub executables into the config's bin dir. If
// names is empty, every vendored tool is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "aria2c", "N_m3u8DL-RE"}
		}
		for _, name := range names {
			StubBinary(b.t, b.cfg.Paths.BinDir, name, "exit 0")
		}
	}
}

// StubBinary writes a POSIX shell script named after the tool into dir and
// returns its path. body runs after the shebang line.
func StubBinary(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, platform.ExecutableName(name))
	script := []byte("#!/bin/sh\n" + body + "\n")
	if err := os.WriteFile(target, script, 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// RequirePOSIXShell skips tests that execute stub scripts on Windows.
func RequirePOSIXShell(t testing.TB) {
	t.Helper()
	if runtime.GOOS == platform.OSWindows {
		t.Skip("stub binaries are shell scripts")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.BinDir)
}
