package launcher

import (
	"regexp"
	"strconv"
	"strings"
)

// Progress is a percentage parsed from engine output.
type Progress struct {
	Stage   string
	Percent float64
}

// Progress stages, named after the tool that printed the line.
const (
	StageYtDlp = "yt-dlp"
	StageAria2 = "aria2"
	StageRE    = "re"
)

var (
	// [download]  42.3% of ~ 10.00MiB at 1.2MiB/s ETA 00:07
	ytDlpProgress = regexp.MustCompile(`^\[download\]\s+(\d{1,3}(?:\.\d+)?)%`)
	// [#2089b0 400.0KiB/33.2MiB(1%) CN:1 DL:115.7KiB]
	aria2Progress = regexp.MustCompile(`^\[#[0-9a-f]+ .*\((\d{1,3})%\)`)
	// Vid 1920x1080 | 2743 Kbps ━━━━━━━━ 120/474 25.32% 10.2MB/40.4MB 3.25MBps 00:00:12
	reProgress = regexp.MustCompile(`^(?:Vid|Aud|Sub)\b.*?\s(\d{1,3}(?:\.\d+)?)%`)
)

// ParseProgress extracts a download percentage from a yt-dlp, aria2c or
// N_m3u8DL-RE output line.
func ParseProgress(line string) (Progress, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Progress{}, false
	}
	for _, candidate := range []struct {
		stage string
		re    *regexp.Regexp
	}{
		{StageYtDlp, ytDlpProgress},
		{StageAria2, aria2Progress},
		{StageRE, reProgress},
	} {
		match := candidate.re.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		percent, err := strconv.ParseFloat(match[1], 64)
		if err != nil || percent > 100 {
			return Progress{}, false
		}
		return Progress{Stage: candidate.stage, Percent: percent}, true
	}
	return Progress{}, false
}

// errorMarkers are matched case-insensitively against every output line.
var errorMarkers = []string{"error", "not found", "403", "failed"}

// LooksLikeError reports whether an output line carries one of the failure
// markers engines print before exiting.
func LooksLikeError(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
