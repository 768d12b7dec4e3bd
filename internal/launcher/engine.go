package launcher

import (
	"fmt"
	"strings"

	"univdl/internal/config"
	"univdl/internal/deps"
)

// Engine selects the external downloader used for a job.
type Engine string

const (
	EngineNative Engine = config.EngineNative
	EngineAria2  Engine = config.EngineAria2
	EngineRE     Engine = config.EngineRE
)

// Engines lists every engine in display order.
func Engines() []Engine {
	return []Engine{EngineNative, EngineAria2, EngineRE}
}

// ParseEngine accepts engine names and the binary aliases users tend to type.
func ParseEngine(value string) (Engine, error) {
	normalized := config.NormalizeEngine(value)
	for _, engine := range Engines() {
		if string(engine) == normalized {
			return engine, nil
		}
	}
	return "", fmt.Errorf("unknown engine %q (want native, aria2 or re)", strings.TrimSpace(value))
}

// Tools returns the binaries the engine cannot run without.
func (e Engine) Tools() []deps.Tool {
	switch e {
	case EngineAria2:
		return []deps.Tool{deps.ToolYtDlp, deps.ToolAria2}
	case EngineRE:
		return []deps.Tool{deps.ToolRE}
	default:
		return []deps.Tool{deps.ToolYtDlp}
	}
}

// Label is the human-readable engine name used in log lines.
func (e Engine) Label() string {
	switch e {
	case EngineAria2:
		return "yt-dlp + aria2c"
	case EngineRE:
		return "N_m3u8DL-RE"
	default:
		return "yt-dlp"
	}
}
