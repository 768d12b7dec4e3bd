package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	BinDir      string `toml:"bin_dir"`
	DownloadDir string `toml:"download_dir"`
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
}

// Download contains the defaults applied to every download request.
type Download struct {
	Engine            string `toml:"engine"`
	Threads           int    `toml:"threads"`
	CookieSource      string `toml:"cookie_source"`
	CookieFile        string `toml:"cookie_file"`
	Retries           int    `toml:"retries"`
	MergeOutputFormat string `toml:"merge_output_format"`
	Format            string `toml:"format"`
	Aria2MinSplit     string `toml:"aria2_min_split"`
	// CheckOutput enables scanning engine output for error keywords in
	// addition to the exit code.
	CheckOutput bool `toml:"check_output"`
}

// Installer contains configuration for fetching the vendored binaries.
type Installer struct {
	Region         string            `toml:"region"`
	MirrorPrefix   string            `toml:"mirror_prefix"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	Retries        int               `toml:"retries"`
	UserAgent      string            `toml:"user_agent"`
	URLs           map[string]string `toml:"urls"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for univdl.
//
// Configuration sections by subsystem:
//   - Paths: bin/, download, log, and state directories
//   - Download: engine, threads, cookies, and yt-dlp options
//   - Installer: region, mirror, retries, and URL overrides
//   - Logging: log format and level
//   - Lang: message catalog language
type Config struct {
	Paths     Paths     `toml:"paths"`
	Download  Download  `toml:"download"`
	Installer Installer `toml:"installer"`
	Logging   Logging   `toml:"logging"`
	Lang      string    `toml:"lang"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/univdl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	var data []byte
	if exists {
		data, err = os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, "", false, err
	}
	return cfg, resolvedPath, exists, nil
}

// parse decodes TOML over the defaults, then normalizes and validates. An
// empty document yields the defaults.
func parse(data []byte) (*Config, error) {
	cfg := Default()
	keys := keySet{}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		keys.collect("", raw)
	}

	if err := cfg.normalize(keys); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// keySet holds the dotted keys a config file sets explicitly.
type keySet map[string]bool

func (k keySet) collect(prefix string, table map[string]any) {
	for key, value := range table {
		if prefix != "" {
			key = prefix + "." + key
		}
		k[key] = true
		if nested, ok := value.(map[string]any); ok {
			k.collect(key, nested)
		}
	}
}

// ResolvePath reports the config file Load would read for path and whether
// it exists.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("univdl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories univdl writes to. The download
// directory is created lazily by the engines themselves.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BinDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobLogDir returns the directory holding per-download log files.
func (c *Config) JobLogDir() string {
	return filepath.Join(c.Paths.LogDir, "jobs")
}

// HistoryPath returns the download history database path.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// InstallTimeout returns the overall installer timeout.
func (c *Config) InstallTimeout() time.Duration {
	return time.Duration(c.Installer.TimeoutSeconds) * time.Second
}

// UsesBrowserCookies reports whether downloads read cookies from a browser.
func (c *Config) UsesBrowserCookies() bool {
	switch c.Download.CookieSource {
	case "", CookieSourceNone, CookieSourceFile:
		return false
	default:
		return true
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// portableBinDir returns the bin/ directory shipped next to the executable,
// or an empty string when there is none.
func portableBinDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	candidate := filepath.Join(filepath.Dir(exe), "bin")
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate
	}
	return ""
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
