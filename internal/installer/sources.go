package installer

import (
	"strings"

	"univdl/internal/config"
	"univdl/internal/deps"
	"univdl/internal/platform"
)

// Kind describes the artifact served by a source URL.
type Kind string

const (
	KindRaw   Kind = "raw"
	KindZip   Kind = "zip"
	KindTarGz Kind = "tar.gz"
	KindGz    Kind = "gz"
)

// Source is a download location for one tool on one platform.
type Source struct {
	Tool deps.Tool
	URL  string
	Kind Kind
}

const (
	ytDlpRelease = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/"
	ffmpegStatic = "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.0/"
	ffmpegBtbN   = "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest/"
	aria2Windows = "https://github.com/aria2/aria2/releases/download/release-1.37.0/"
	aria2Static  = "https://github.com/abcfy2/aria2-static-build/releases/download/1.37.0/"
	reRelease    = "https://github.com/nilaoda/N_m3u8DL-RE/releases/download/v0.3.0-beta/"
	reAsset      = "N_m3u8DL-RE_v0.3.0-beta_"
	reBuildDate  = "_20241203"
)

// registry maps tool -> "os-arch" -> source. A missing entry means no
// vendored build exists for that platform.
var registry = map[deps.Tool]map[string]Source{
	deps.ToolYtDlp: {
		"windows-x64":   {URL: ytDlpRelease + "yt-dlp.exe", Kind: KindRaw},
		"windows-arm64": {URL: ytDlpRelease + "yt-dlp.exe", Kind: KindRaw},
		"darwin-x64":    {URL: ytDlpRelease + "yt-dlp_macos", Kind: KindRaw},
		"darwin-arm64":  {URL: ytDlpRelease + "yt-dlp_macos", Kind: KindRaw},
		"linux-x64":     {URL: ytDlpRelease + "yt-dlp_linux", Kind: KindRaw},
		"linux-arm64":   {URL: ytDlpRelease + "yt-dlp_linux_aarch64", Kind: KindRaw},
	},
	deps.ToolFFmpeg: {
		"windows-x64":   {URL: ffmpegBtbN + "ffmpeg-master-latest-win64-gpl.zip", Kind: KindZip},
		"windows-arm64": {URL: ffmpegBtbN + "ffmpeg-master-latest-winarm64-gpl.zip", Kind: KindZip},
		"darwin-x64":    {URL: ffmpegStatic + "ffmpeg-darwin-x64.gz", Kind: KindGz},
		"darwin-arm64":  {URL: ffmpegStatic + "ffmpeg-darwin-arm64.gz", Kind: KindGz},
		"linux-x64":     {URL: ffmpegStatic + "ffmpeg-linux-x64.gz", Kind: KindGz},
		"linux-arm64":   {URL: ffmpegStatic + "ffmpeg-linux-arm64.gz", Kind: KindGz},
	},
	deps.ToolAria2: {
		"windows-x64":   {URL: aria2Windows + "aria2-1.37.0-win-64bit-build1.zip", Kind: KindZip},
		"windows-arm64": {URL: aria2Windows + "aria2-1.37.0-win-64bit-build1.zip", Kind: KindZip},
		"linux-x64":     {URL: aria2Static + "aria2-x86_64-linux-musl_static.zip", Kind: KindZip},
		"linux-arm64":   {URL: aria2Static + "aria2-aarch64-linux-musl_static.zip", Kind: KindZip},
	},
	deps.ToolRE: {
		"windows-x64":   {URL: reRelease + reAsset + "win-x64" + reBuildDate + ".zip", Kind: KindZip},
		"windows-arm64": {URL: reRelease + reAsset + "win-arm64" + reBuildDate + ".zip", Kind: KindZip},
		"darwin-x64":    {URL: reRelease + reAsset + "osx-x64" + reBuildDate + ".tar.gz", Kind: KindTarGz},
		"darwin-arm64":  {URL: reRelease + reAsset + "osx-arm64" + reBuildDate + ".tar.gz", Kind: KindTarGz},
		"linux-x64":     {URL: reRelease + reAsset + "linux-x64" + reBuildDate + ".tar.gz", Kind: KindTarGz},
		"linux-arm64":   {URL: reRelease + reAsset + "linux-arm64" + reBuildDate + ".tar.gz", Kind: KindTarGz},
	},
}

// SourceOptions adjusts the registry lookup.
type SourceOptions struct {
	// Region is global or cn; cn routes GitHub URLs through MirrorPrefix.
	Region       string
	MirrorPrefix string
	// Overrides maps tool keys (see deps.Tool.Key) to replacement URLs.
	// Overrides are used verbatim.
	Overrides map[string]string
}

// SourceOptionsFromConfig builds lookup options for an already resolved
// region.
func SourceOptionsFromConfig(cfg *config.Config, region string) SourceOptions {
	return SourceOptions{
		Region:       region,
		MirrorPrefix: cfg.Installer.MirrorPrefix,
		Overrides:    cfg.Installer.URLs,
	}
}

// ResolveSource returns the download source for tool on p.
func ResolveSource(tool deps.Tool, p platform.Platform, opts SourceOptions) (Source, bool) {
	if override := strings.TrimSpace(opts.Overrides[tool.Key()]); override != "" {
		return Source{Tool: tool, URL: override, Kind: KindFromURL(override)}, true
	}
	src, ok := registry[tool][p.String()]
	if !ok {
		return Source{}, false
	}
	src.Tool = tool
	if opts.Region == config.RegionCN && opts.MirrorPrefix != "" && strings.HasPrefix(src.URL, "https://github.com/") {
		src.URL = opts.MirrorPrefix + src.URL
	}
	return src, true
}

// KindFromURL infers the artifact kind from a URL's file extension.
func KindFromURL(rawURL string) Kind {
	lower := strings.ToLower(rawURL)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz
	case strings.HasSuffix(lower, ".gz"):
		return KindGz
	default:
		return KindRaw
	}
}
