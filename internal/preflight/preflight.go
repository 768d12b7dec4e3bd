package preflight

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"univdl/internal/config"
	"univdl/internal/deps"
	"univdl/internal/launcher"
	"univdl/internal/logging"
	"univdl/internal/services"
)

// Result reports the outcome of a single preflight check. Warning marks a
// passed check whose detail deserves attention.
type Result struct {
	Name    string
	Passed  bool
	Warning bool
	Detail  string
}

// RunAll executes the checks a download with engine needs.
func RunAll(cfg *config.Config, engine launcher.Engine) []Result {
	if cfg == nil {
		return nil
	}

	layout := deps.NewLayout(cfg.Paths.BinDir)
	results := CheckEngine(layout, engine)
	results = append(results, CheckDownloadDir("Download directory", cfg.Paths.DownloadDir))
	if cfg.Download.CookieSource == config.CookieSourceFile {
		results = append(results, CheckCookieFile(cfg.Download.CookieFile))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err folds failed results into a single configuration error, or nil when
// every check passed.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(
		services.ErrConfiguration,
		"preflight",
		"run checks",
		"preflight failed",
		errors.New(strings.Join(parts, "; ")),
	)
}

// Log writes one line per result: failures at error level, warnings at warn
// level and passes at debug level.
func Log(logger *slog.Logger, results []Result) {
	if logger == nil {
		return
	}
	for _, r := range results {
		switch {
		case !r.Passed:
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.Hint("run univdl deps install or fix the configured path"),
			)
		case r.Warning:
			logging.WarnWithContext(logger, "preflight check warning", "preflight_warning",
				logging.String("check", r.Name),
				logging.Impact(r.Detail),
			)
		default:
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
		}
	}
}
