package config

import (
	"fmt"
	"os"
	"strings"

	"univdl/internal/platform"
)

// normalize fills defaults and expands paths. The UNIVDL_* environment
// variables only apply to keys the config file leaves unset.
func (c *Config) normalize(fileKeys keySet) error {
	if err := c.normalizePaths(fileKeys); err != nil {
		return err
	}
	if err := c.normalizeDownload(fileKeys); err != nil {
		return err
	}
	c.normalizeInstaller()
	c.normalizeLogging()
	c.Lang = strings.ToLower(strings.TrimSpace(c.Lang))
	if c.Lang == "" {
		c.Lang = defaultLang
	}
	return nil
}

func (c *Config) normalizePaths(fileKeys keySet) error {
	if value, ok := lookupEnv("UNIVDL_BIN_DIR"); ok && !fileKeys["paths.bin_dir"] {
		c.Paths.BinDir = value
	}
	if value, ok := lookupEnv("UNIVDL_DOWNLOAD_DIR"); ok && !fileKeys["paths.download_dir"] {
		c.Paths.DownloadDir = value
	}
	if strings.TrimSpace(c.Paths.BinDir) == "" {
		if portable := portableBinDir(); portable != "" {
			c.Paths.BinDir = portable
		} else {
			c.Paths.BinDir = defaultBinDir
		}
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}

	var err error
	if c.Paths.BinDir, err = expandPath(c.Paths.BinDir); err != nil {
		return fmt.Errorf("paths.bin_dir: %w", err)
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownload(fileKeys keySet) error {
	c.Download.Engine = NormalizeEngine(c.Download.Engine)
	if c.Download.Engine == "" {
		c.Download.Engine = defaultEngine
	}
	c.Download.Threads = ClampThreads(c.Download.Threads)
	if c.Download.Retries <= 0 {
		c.Download.Retries = defaultRetries
	}
	c.Download.MergeOutputFormat = strings.TrimSpace(c.Download.MergeOutputFormat)
	if c.Download.MergeOutputFormat == "" {
		c.Download.MergeOutputFormat = defaultMergeOutputFormat
	}
	c.Download.Format = strings.TrimSpace(c.Download.Format)
	if c.Download.Format == "" {
		c.Download.Format = defaultFormat
	}
	c.Download.Aria2MinSplit = strings.TrimSpace(c.Download.Aria2MinSplit)
	if c.Download.Aria2MinSplit == "" {
		c.Download.Aria2MinSplit = defaultAria2MinSplit
	}

	if value, ok := lookupEnv("UNIVDL_COOKIE_FILE"); ok && !fileKeys["download.cookie_file"] {
		c.Download.CookieFile = value
		if !fileKeys["download.cookie_source"] {
			c.Download.CookieSource = CookieSourceFile
		}
	}
	var err error
	if c.Download.CookieFile, err = expandPath(strings.TrimSpace(c.Download.CookieFile)); err != nil {
		return fmt.Errorf("download.cookie_file: %w", err)
	}
	c.Download.CookieSource = SanitizeCookieSource(c.Download.CookieSource)
	return nil
}

func (c *Config) normalizeInstaller() {
	c.Installer.Region = strings.ToLower(strings.TrimSpace(c.Installer.Region))
	if c.Installer.Region == "" {
		c.Installer.Region = defaultRegion
	}
	c.Installer.MirrorPrefix = strings.TrimSpace(c.Installer.MirrorPrefix)
	if c.Installer.MirrorPrefix == "" {
		c.Installer.MirrorPrefix = defaultMirrorPrefix
	}
	if !strings.HasSuffix(c.Installer.MirrorPrefix, "/") {
		c.Installer.MirrorPrefix += "/"
	}
	if c.Installer.TimeoutSeconds <= 0 {
		c.Installer.TimeoutSeconds = defaultInstallTimeout
	}
	if c.Installer.Retries <= 0 {
		c.Installer.Retries = defaultInstallRetries
	}
	c.Installer.UserAgent = strings.TrimSpace(c.Installer.UserAgent)
	if c.Installer.UserAgent == "" {
		c.Installer.UserAgent = defaultUserAgent
	}
	if len(c.Installer.URLs) > 0 {
		urls := make(map[string]string, len(c.Installer.URLs))
		for tool, url := range c.Installer.URLs {
			url = strings.TrimSpace(url)
			if url == "" {
				continue
			}
			urls[strings.ToLower(strings.TrimSpace(tool))] = url
		}
		c.Installer.URLs = urls
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "text", "pretty":
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	if level == "warning" {
		level = "warn"
	}
	c.Logging.Level = level
}

// NormalizeEngine maps engine aliases to their canonical configuration name.
// Unknown values are returned lowercased so validation can report them.
func NormalizeEngine(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "native", "yt-dlp", "ytdlp", "yt_dlp":
		return EngineNative
	case "aria2", "aria2c":
		return EngineAria2
	case "re", "n_m3u8dl-re", "n_m3u8dl_re", "m3u8":
		return EngineRE
	default:
		return value
	}
}

// ClampThreads bounds a thread count to the supported range, replacing
// non-positive values with the default.
func ClampThreads(n int) int {
	switch {
	case n <= 0:
		return defaultThreads
	case n > maxThreads:
		return maxThreads
	default:
		return n
	}
}

// SanitizeCookieSource lowercases a cookie source and replaces browsers that
// are not available on the current platform with "none".
func SanitizeCookieSource(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "", "guest", CookieSourceNone:
		return CookieSourceNone
	case CookieSourceFile:
		return CookieSourceFile
	}
	if platform.IsBrowser(value) && !platform.Current().SupportsBrowser(value) {
		return CookieSourceNone
	}
	return value
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
