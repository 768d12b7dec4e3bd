package launcher

import (
	"net/url"
	"strings"

	"univdl/internal/config"
	"univdl/internal/platform"
	"univdl/internal/services"
)

// Request describes one download.
type Request struct {
	URL          string
	DownloadDir  string
	Engine       Engine
	Threads      int
	CookieSource string
	CookieFile   string

	// yt-dlp tuning; zero values fall back to the built-in defaults.
	Retries           int
	MergeOutputFormat string
	Format            string
	Aria2MinSplit     string
}

const (
	defaultRetries           = 10
	defaultMergeOutputFormat = "mp4"
	defaultFormat            = "bv+ba/b"
	defaultAria2MinSplit     = "1M"
	// aria2c rejects --max-connection-per-server above 16.
	aria2MaxConnections = 16
)

// RequestFromConfig seeds a request for targetURL with the configured
// download settings.
func RequestFromConfig(cfg *config.Config, targetURL string) Request {
	req := Request{URL: targetURL}
	if cfg == nil {
		return req
	}
	req.DownloadDir = cfg.Paths.DownloadDir
	req.Engine = Engine(cfg.Download.Engine)
	req.Threads = cfg.Download.Threads
	req.CookieSource = cfg.Download.CookieSource
	req.CookieFile = cfg.Download.CookieFile
	req.Retries = cfg.Download.Retries
	req.MergeOutputFormat = cfg.Download.MergeOutputFormat
	req.Format = cfg.Download.Format
	req.Aria2MinSplit = cfg.Download.Aria2MinSplit
	return req
}

// normalize validates the request and fills defaults. Downgrades that keep
// the download running are reported as warnings.
func (r Request) normalize() (Request, []string, error) {
	var warnings []string

	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return r, nil, services.Wrap(services.ErrValidation, "launcher", "build command", "url is required", nil)
	}
	parsed, err := url.Parse(r.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return r, nil, services.Wrap(services.ErrValidation, "launcher", "build command", "url must be an http(s) address: "+r.URL, nil)
	}

	r.DownloadDir = strings.TrimSpace(r.DownloadDir)
	if r.DownloadDir == "" {
		return r, nil, services.Wrap(services.ErrValidation, "launcher", "build command", "download directory is required", nil)
	}

	if r.Engine == "" {
		r.Engine = EngineNative
	}
	engine, err := ParseEngine(string(r.Engine))
	if err != nil {
		return r, nil, services.Wrap(services.ErrValidation, "launcher", "build command", "", err)
	}
	r.Engine = engine
	r.Threads = config.ClampThreads(r.Threads)

	r.CookieSource = config.SanitizeCookieSource(r.CookieSource)
	r.CookieFile = strings.TrimSpace(r.CookieFile)
	switch {
	case r.CookieSource == config.CookieSourceNone:
	case r.CookieSource == config.CookieSourceFile:
		if r.CookieFile == "" {
			warnings = append(warnings, "cookie source is file but no cookie file is set; continuing as guest")
			r.CookieSource = config.CookieSourceNone
		}
	case platform.IsBrowser(r.CookieSource):
		if r.Engine == EngineRE {
			warnings = append(warnings, "N_m3u8DL-RE cannot read browser cookies; continuing as guest")
			r.CookieSource = config.CookieSourceNone
		}
	default:
		return r, nil, services.Wrap(services.ErrValidation, "launcher", "build command", "unsupported cookie source "+r.CookieSource, nil)
	}

	if r.Retries <= 0 {
		r.Retries = defaultRetries
	}
	if strings.TrimSpace(r.MergeOutputFormat) == "" {
		r.MergeOutputFormat = defaultMergeOutputFormat
	}
	if strings.TrimSpace(r.Format) == "" {
		r.Format = defaultFormat
	}
	if strings.TrimSpace(r.Aria2MinSplit) == "" {
		r.Aria2MinSplit = defaultAria2MinSplit
	}
	return r, warnings, nil
}
