package config

import (
	"errors"
	"fmt"
	"strings"

	"univdl/internal/platform"
)

// Tool identifiers accepted as keys of [installer.urls].
var knownTools = []string{"yt-dlp", "ffmpeg", "aria2", "n_m3u8dl-re"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateInstaller(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	switch c.Lang {
	case LangAuto, "en", "zh":
	default:
		return fmt.Errorf("lang must be auto, en or zh (got %q)", c.Lang)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.BinDir == "" {
		return errors.New("paths.bin_dir must be set")
	}
	if c.Paths.DownloadDir == "" {
		return errors.New("paths.download_dir must be set")
	}
	return nil
}

func (c *Config) validateDownload() error {
	switch c.Download.Engine {
	case EngineNative, EngineAria2, EngineRE:
	default:
		return fmt.Errorf("download.engine must be native, aria2, or re (got %q)", c.Download.Engine)
	}
	if c.Download.Threads < minThreads || c.Download.Threads > maxThreads {
		return fmt.Errorf("download.threads must be between %d and %d", minThreads, maxThreads)
	}
	switch source := c.Download.CookieSource; {
	case source == CookieSourceNone:
	case source == CookieSourceFile:
		if c.Download.CookieFile == "" {
			return errors.New("download.cookie_file is required when download.cookie_source is \"file\"")
		}
	case platform.IsBrowser(source):
	default:
		return fmt.Errorf("download.cookie_source must be none, file, or one of %s (got %q)",
			strings.Join(platform.Current().SupportedBrowsers(), ", "), source)
	}
	return nil
}

func (c *Config) validateInstaller() error {
	switch c.Installer.Region {
	case RegionAuto, RegionGlobal, RegionCN:
	default:
		return fmt.Errorf("installer.region must be auto, global, or cn (got %q)", c.Installer.Region)
	}
	if !strings.HasPrefix(c.Installer.MirrorPrefix, "http://") && !strings.HasPrefix(c.Installer.MirrorPrefix, "https://") {
		return fmt.Errorf("installer.mirror_prefix must be an http(s) URL (got %q)", c.Installer.MirrorPrefix)
	}
	for tool := range c.Installer.URLs {
		if !isKnownTool(tool) {
			return fmt.Errorf("installer.urls: unknown tool %q", tool)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func isKnownTool(name string) bool {
	for _, tool := range knownTools {
		if tool == name {
			return true
		}
	}
	return false
}
