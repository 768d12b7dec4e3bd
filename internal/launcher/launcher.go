package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"univdl/internal/config"
	"univdl/internal/cookies"
	"univdl/internal/deps"
	"univdl/internal/history"
	"univdl/internal/logging"
	"univdl/internal/services"
)

// Outcome describes a finished download job.
type Outcome struct {
	JobID   string
	LogPath string
	Command *Command
	Result  Result
	Status  history.Status
	// Message is the failure reason stored in history; empty on success.
	Message string
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithHistory records every job in store.
func WithHistory(store *history.Store) Option {
	return func(l *Launcher) {
		l.store = store
	}
}

// WithRunner replaces the process runner (primarily for tests).
func WithRunner(runner *Runner) Option {
	return func(l *Launcher) {
		if runner != nil {
			l.runner = runner
		}
	}
}

// WithLayout overrides the bin/ layout derived from configuration.
func WithLayout(layout deps.Layout) Option {
	return func(l *Launcher) {
		l.layout = layout
	}
}

// Launcher runs download jobs: one engine process per call to Download.
type Launcher struct {
	cfg     *config.Config
	layout  deps.Layout
	store   *history.Store
	runner  *Runner
	matcher *cookies.Matcher
	base    *slog.Logger
	logger  *slog.Logger
}

// New constructs a launcher for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Launcher {
	l := &Launcher{
		cfg:     cfg,
		layout:  deps.NewLayout(cfg.Paths.BinDir),
		runner:  NewRunner(WithOutputCheck(cfg.Download.CheckOutput)),
		matcher: cookies.NewMatcher(cookies.DefaultCacheEntries, cookies.DefaultMaxHeaderLen),
		base:    logger,
		logger:  logging.NewComponentLogger(logger, "launcher"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Download runs req to completion. onDone, when set, is called once with the
// success flag and exit code after the engine exits or fails to start. The
// returned error is non-nil when the engine could not run to completion; a
// failed download that exited on its own is reported through Outcome.Status.
func (l *Launcher) Download(ctx context.Context, req Request, onDone func(success bool, exitCode int)) (*Outcome, error) {
	outcome := &Outcome{JobID: uuid.NewString(), Status: history.StatusFailed}
	done := func(success bool, code int) {
		if onDone != nil {
			onDone(success, code)
		}
	}

	ctx = services.WithJobID(ctx, outcome.JobID)
	if engine, err := ParseEngine(string(req.Engine)); err == nil {
		ctx = services.WithEngine(ctx, string(engine))
	}

	logger, closeLog := l.jobLogger(ctx, outcome)
	defer closeLog()

	cmd, err := BuildCommand(req, l.layout, WithCookieMatcher(l.matcher))
	if err != nil {
		outcome.Message = err.Error()
		logging.ErrorWithContext(logger, "download not started", "download_rejected",
			logging.Error(err),
			logging.Hint(buildHint(err)),
		)
		done(false, -1)
		return outcome, err
	}
	outcome.Command = cmd
	for _, warning := range cmd.Warnings {
		logging.WarnWithContext(logger, warning, "download_downgraded",
			logging.Impact("download continues without the requested option"),
			logging.Hint("use a cookies.txt export for N_m3u8DL-RE or check the cookie file"),
		)
	}

	if err := os.MkdirAll(cmd.Request.DownloadDir, 0o755); err != nil {
		err = services.Wrap(services.ErrConfiguration, "launcher", "prepare", "create download directory", err)
		outcome.Message = err.Error()
		logging.ErrorWithContext(logger, "download not started", "download_rejected", logging.Error(err))
		done(false, -1)
		return outcome, err
	}

	l.recordStart(ctx, logger, outcome, cmd)

	logger.Info("Execute",
		logging.String(logging.FieldEventType, "download_started"),
		logging.String("command", cmd.String()),
		logging.String("download_dir", cmd.Request.DownloadDir),
		logging.Int("threads", cmd.Request.Threads),
		logging.String("cookie_source", cmd.Request.CookieSource),
	)

	sampler := logging.NewProgressSampler(5)
	result, runErr := l.runner.Run(ctx, cmd, func(line Line) {
		logLine(logger, sampler, line)
	})
	outcome.Result = result

	switch {
	case runErr != nil:
		outcome.Status = services.FailureStatus(runErr)
		outcome.Message = runErr.Error()
	case result.Success:
		outcome.Status = history.StatusCompleted
	case result.ExitCode != 0:
		outcome.Message = fmt.Sprintf("%s exited with code %d", cmd.Engine.Label(), result.ExitCode)
	default:
		outcome.Message = "error reported in output: " + result.FirstError
	}

	l.recordFinish(ctx, logger, outcome)
	l.logOutcome(logger, outcome, runErr)

	done(outcome.Status == history.StatusCompleted, result.ExitCode)
	if runErr != nil {
		return outcome, runErr
	}
	return outcome, nil
}

// jobLogger opens the per-job JSON log and returns a logger that writes to
// both the CLI handler and that file.
func (l *Launcher) jobLogger(ctx context.Context, outcome *Outcome) (*slog.Logger, func()) {
	logger := logging.WithContext(ctx, l.logger)
	dir := l.cfg.JobLogDir()
	if strings.TrimSpace(dir) == "" {
		return logger, func() {}
	}
	path := filepath.Join(dir, outcome.JobID+".log")
	jobLog, err := logging.OpenJobLog(path)
	if err != nil {
		logging.WarnWithContext(logger, "job log unavailable", "job_log_failed",
			logging.Error(err),
			logging.Impact("engine output is only shown on the console"),
			logging.Hint("check log_dir permissions"),
		)
		return logger, func() {}
	}
	outcome.LogPath = path
	logging.CleanupOldLogs(logger, dir, "*.log", l.cfg.Logging.RetentionDays, path)
	teed := logging.NewComponentLogger(logging.TeeLogger(l.base, jobLog.Handler()), "launcher")
	teed = logging.WithContext(ctx, teed)
	return teed, func() { _ = jobLog.Close() }
}

func (l *Launcher) recordStart(ctx context.Context, logger *slog.Logger, outcome *Outcome, cmd *Command) {
	if l.store == nil {
		return
	}
	_, err := l.store.Start(ctx, history.Record{
		ID:           outcome.JobID,
		URL:          cmd.Request.URL,
		Engine:       string(cmd.Engine),
		Threads:      cmd.Request.Threads,
		CookieSource: cmd.Request.CookieSource,
		DownloadDir:  cmd.Request.DownloadDir,
		LogPath:      outcome.LogPath,
		PID:          os.Getpid(),
	})
	if err != nil {
		logging.WarnWithContext(logger, "history record not created", "history_write_failed",
			logging.Error(err),
			logging.Impact("download will not appear in history"),
		)
	}
}

func (l *Launcher) recordFinish(ctx context.Context, logger *slog.Logger, outcome *Outcome) {
	if l.store == nil {
		return
	}
	// The job context is already canceled when the user stopped the download.
	ctx = context.WithoutCancel(ctx)
	if err := l.store.Finish(ctx, outcome.JobID, outcome.Status, outcome.Result.ExitCode, outcome.Message); err != nil {
		logging.WarnWithContext(logger, "history record not updated", "history_write_failed",
			logging.Error(err),
			logging.Impact("history may show the download as running"),
		)
	}
}

func (l *Launcher) logOutcome(logger *slog.Logger, outcome *Outcome, runErr error) {
	attrs := []logging.Attr{
		logging.Int("exit_code", outcome.Result.ExitCode),
		logging.Duration("duration", outcome.Result.Duration),
		logging.String("status", string(outcome.Status)),
	}
	switch outcome.Status {
	case history.StatusCompleted:
		attrs = append(attrs, logging.String(logging.FieldEventType, "download_completed"))
		logger.Info("download completed", logging.Args(attrs...)...)
	case history.StatusStopped:
		logging.WarnWithContext(logger, "download stopped", "download_stopped",
			append(attrs,
				logging.Impact("partial files may remain in the download directory"),
				logging.Hint("run the same download again to resume"),
			)...,
		)
	default:
		hint := "update the engine with `univdl deps install --force` or check cookies"
		if runErr != nil {
			hint = buildHint(runErr)
		}
		logging.ErrorWithContext(logger, "download failed", "download_failed",
			append(attrs,
				logging.String("reason", outcome.Message),
				logging.Hint(hint),
			)...,
		)
	}
}

func buildHint(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "run `univdl deps install` to fetch the missing engine"
	case errors.Is(err, services.ErrValidation):
		return "check the URL and download options"
	case errors.Is(err, services.ErrConfiguration):
		return "check paths in the configuration file"
	default:
		return "check the job log for engine output"
	}
}

func logLine(logger *slog.Logger, sampler *logging.ProgressSampler, line Line) {
	switch {
	case line.ErrorHint:
		logger.Warn(line.Text, logging.String(logging.FieldEventType, "engine_output"))
	case line.Progress != nil:
		level := slog.LevelDebug
		if sampler.ShouldLog(line.Progress.Percent, line.Progress.Stage) {
			level = slog.LevelInfo
		}
		logger.Log(context.Background(), level, line.Text,
			logging.Float64(logging.FieldProgressPercent, line.Progress.Percent),
			logging.String(logging.FieldProgressStage, line.Progress.Stage),
		)
	default:
		logger.Info(line.Text)
	}
}
