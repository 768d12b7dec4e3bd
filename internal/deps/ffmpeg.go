package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"univdl/internal/platform"
)

// FFmpegFor reports the ffmpeg binary the engines should use.
//
// An ffmpeg sitting next to the engines in bin/ wins so yt-dlp and
// N_m3u8DL-RE never pick up an incompatible system build. Otherwise ffmpeg
// is resolved from PATH.
func FFmpegFor(binDir string) Status {
	result := Status{
		Name:        string(ToolFFmpeg),
		Description: ToolFFmpeg.Description(),
	}

	name := platform.ExecutableName(ToolFFmpeg.Binary())
	if binDir != "" {
		candidate := filepath.Join(binDir, name)
		if info, err := os.Stat(candidate); err == nil && platform.IsExecutable(info) {
			result.Command = candidate
			result.Available = true
			result.Location = LocationBin
			return result
		}
	}

	if ffmpegPath, err := exec.LookPath(name); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		result.Location = LocationPath
		return result
	}

	result.Command = name
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}
