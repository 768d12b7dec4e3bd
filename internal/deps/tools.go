package deps

import (
	"fmt"
	"strings"

	"univdl/internal/platform"
)

// Tool identifies a vendored executable.
type Tool string

const (
	ToolYtDlp  Tool = "yt-dlp"
	ToolFFmpeg Tool = "ffmpeg"
	ToolAria2  Tool = "aria2"
	ToolRE     Tool = "N_m3u8DL-RE"
)

// AllTools returns every tool in install order.
func AllTools() []Tool {
	return []Tool{ToolYtDlp, ToolFFmpeg, ToolAria2, ToolRE}
}

// ParseTool accepts a tool name or binary name in any case.
func ParseTool(value string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yt-dlp", "ytdlp":
		return ToolYtDlp, nil
	case "ffmpeg":
		return ToolFFmpeg, nil
	case "aria2", "aria2c":
		return ToolAria2, nil
	case "n_m3u8dl-re", "re":
		return ToolRE, nil
	default:
		return "", fmt.Errorf("unknown tool %q", value)
	}
}

// Binary returns the executable base name without platform suffix.
func (t Tool) Binary() string {
	if t == ToolAria2 {
		return "aria2c"
	}
	return string(t)
}

// Key returns the lowercase identifier used in configuration tables.
func (t Tool) Key() string {
	return strings.ToLower(string(t))
}

// Description explains what the tool is used for.
func (t Tool) Description() string {
	switch t {
	case ToolYtDlp:
		return "Site extraction and native downloads"
	case ToolFFmpeg:
		return "Merging audio and video streams"
	case ToolAria2:
		return "Multi-connection downloader for the aria2 engine"
	case ToolRE:
		return "HLS/DASH downloader for the re engine"
	default:
		return ""
	}
}

// OptionalOn reports whether a missing tool is acceptable on p. No aria2
// build is vendored for macOS, so it is only used when already installed.
func (t Tool) OptionalOn(p platform.Platform) bool {
	return t == ToolAria2 && p.IsMac()
}

// VersionArgs returns the arguments that print the tool's version.
func (t Tool) VersionArgs() []string {
	if t == ToolFFmpeg {
		return []string{"-version"}
	}
	return []string{"--version"}
}
