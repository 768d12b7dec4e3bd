package installer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"univdl/internal/config"
	"univdl/internal/deps"
	"univdl/internal/logging"
	"univdl/internal/services"
)

// Action is what happened to a tool during an install run.
type Action string

const (
	ActionInstalled Action = "installed"
	ActionRepaired  Action = "repaired"
	ActionPresent   Action = "present"
	ActionSkipped   Action = "skipped"
	ActionFailed    Action = "failed"
)

// Options controls an install run.
type Options struct {
	// Force reinstalls tools that are already present.
	Force bool
	// Repair runs the version check on present tools and reinstalls the ones that fail.
	Repair bool
	// Region overrides the configured region (auto, global or cn).
	Region string
	// Tools limits the run; empty means every tool.
	Tools []deps.Tool
}

// ToolResult is the outcome for one tool.
type ToolResult struct {
	Tool     deps.Tool
	Action   Action
	Path     string
	URL      string
	Bytes    int64
	Version  string
	Optional bool
	Err      error
}

// OK reports whether the tool is usable after the run.
func (r ToolResult) OK() bool {
	return r.Action != ActionFailed
}

// Report summarizes an install run.
type Report struct {
	BinDir  string
	Region  string
	Results []ToolResult
}

// OK reports whether every required tool is usable. Optional tools that
// failed do not count against the run.
func (r *Report) OK() bool {
	for _, result := range r.Results {
		if !result.OK() && !result.Optional {
			return false
		}
	}
	return true
}

// Failed returns the results that did not succeed.
func (r *Report) Failed() []ToolResult {
	var failed []ToolResult
	for _, result := range r.Results {
		if !result.OK() {
			failed = append(failed, result)
		}
	}
	return failed
}

// Option configures an Installer.
type Option func(*Installer)

// WithDownloader replaces the HTTP downloader.
func WithDownloader(d *Downloader) Option {
	return func(i *Installer) {
		if d != nil {
			i.downloader = d
		}
	}
}

// WithDialer replaces the dialer used for region detection.
func WithDialer(dial DialFunc) Option {
	return func(i *Installer) {
		i.dial = dial
	}
}

// WithLayout overrides the bin/ layout derived from configuration.
func WithLayout(layout deps.Layout) Option {
	return func(i *Installer) {
		i.layout = layout
	}
}

// WithVersionCheck replaces the version check used for repair and post-install
// checks.
func WithVersionCheck(check func(ctx context.Context, tool deps.Tool, path string) (string, error)) Option {
	return func(i *Installer) {
		if check != nil {
			i.checkVersion = check
		}
	}
}

// Installer downloads and places the vendored engines.
type Installer struct {
	cfg          *config.Config
	layout       deps.Layout
	downloader   *Downloader
	dial         DialFunc
	checkVersion func(ctx context.Context, tool deps.Tool, path string) (string, error)
	logger       *slog.Logger
}

// New constructs an installer for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Installer {
	i := &Installer{
		cfg:          cfg,
		layout:       deps.NewLayout(cfg.Paths.BinDir),
		checkVersion: deps.ReadVersion,
		logger:       logging.NewComponentLogger(logger, "installer"),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.downloader == nil {
		i.downloader = NewDownloader(cfg, logger)
	}
	return i
}

// InstallAll brings every requested tool into bin/. Per-tool failures are
// recorded in the report; the returned error covers problems that stop the
// whole run, such as a concurrent install or an unwritable bin/.
func (i *Installer) InstallAll(ctx context.Context, opts Options) (*Report, error) {
	binDir := i.layout.BinDir
	if strings.TrimSpace(binDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "installer", "install", "bin_dir is not set", nil)
	}
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "installer", "install", "create bin directory", err)
	}
	lock, err := acquireLock(binDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			i.logger.Warn("failed to release install lock", logging.Error(err))
		}
	}()

	configured := opts.Region
	if strings.TrimSpace(configured) == "" {
		configured = i.cfg.Installer.Region
	}
	region := ResolveRegion(ctx, strings.ToLower(strings.TrimSpace(configured)), i.dial)
	report := &Report{BinDir: binDir, Region: region}
	i.logger.Info("installing dependencies",
		logging.String(logging.FieldEventType, "install_started"),
		logging.String("bin_dir", binDir),
		logging.String("region", region),
		logging.String("platform", i.layout.Platform.String()),
	)

	tools := opts.Tools
	if len(tools) == 0 {
		tools = deps.AllTools()
	}
	sources := SourceOptionsFromConfig(i.cfg, region)
	for _, tool := range tools {
		if err := ctx.Err(); err != nil {
			return report, services.Wrap(services.ErrCanceled, "installer", "install", "canceled", err)
		}
		result := i.installTool(services.WithTool(ctx, string(tool)), tool, opts, sources)
		report.Results = append(report.Results, result)
		if errors.Is(result.Err, services.ErrCanceled) {
			return report, result.Err
		}
	}

	if report.OK() {
		i.logger.Info("all dependencies are ready", logging.String(logging.FieldEventType, "install_completed"))
	} else {
		logging.WarnWithContext(i.logger, "some dependencies failed to install", "install_incomplete",
			logging.Int("failed", len(report.Failed())),
			logging.Impact("engines that need the missing tools will not start"),
			logging.Hint("rerun `univdl deps install` or set installer.urls overrides"),
		)
	}
	return report, nil
}

func (i *Installer) installTool(ctx context.Context, tool deps.Tool, opts Options, sources SourceOptions) ToolResult {
	logger := logging.WithContext(ctx, i.logger)
	target := i.layout.Path(tool)
	result := ToolResult{Tool: tool, Path: target, Optional: tool.OptionalOn(i.layout.Platform)}

	action := ActionInstalled
	if i.layout.Has(tool) && !opts.Force {
		if !opts.Repair {
			logger.Info("already present in bin", logging.String("path", target))
			result.Action = ActionPresent
			return result
		}
		version, err := i.checkVersion(ctx, tool, target)
		if err == nil {
			logger.Info("verified", logging.String("path", target), logging.String("version", version))
			result.Action = ActionPresent
			result.Version = version
			return result
		}
		logging.WarnWithContext(logger, "binary is broken; reinstalling", "tool_broken",
			logging.Error(err),
			logging.Impact("the tool is replaced with a fresh download"),
		)
		action = ActionRepaired
	}

	src, ok := ResolveSource(tool, i.layout.Platform, sources)
	if !ok {
		msg := "no download source for " + i.layout.Platform.String()
		if result.Optional {
			logger.Info("skipped: "+msg, logging.String(logging.FieldEventType, "tool_skipped"))
			result.Action = ActionSkipped
			return result
		}
		result.Action = ActionFailed
		result.Err = services.Wrap(services.ErrNotFound, "installer", "resolve source", msg, nil)
		logging.ErrorWithContext(logger, "no download source", "tool_install_failed",
			logging.Error(result.Err),
			logging.Hint("set installer.urls."+tool.Key()+" to a release URL"),
		)
		return result
	}
	result.URL = src.URL

	written, err := i.fetchAndPlace(ctx, src, target)
	result.Bytes = written
	if err != nil {
		result.Action = ActionFailed
		result.Err = err
		logging.ErrorWithContext(logger, "install failed", "tool_install_failed",
			logging.String("url", src.URL),
			logging.Error(err),
			logging.Hint("check network access, or set installer.region = \"cn\" behind a firewall"),
		)
		return result
	}
	result.Action = action

	if version, err := i.checkVersion(ctx, tool, target); err == nil {
		result.Version = version
	} else {
		logging.WarnWithContext(logger, "installed binary failed its version check", "tool_version_failed",
			logging.Error(err),
			logging.Impact("the tool may not run on this system"),
			logging.Hint("run `univdl deps verify` for details"),
		)
	}
	logger.Info("installed",
		logging.String(logging.FieldEventType, "tool_installed"),
		logging.String("path", target),
		logging.String("version", result.Version),
	)
	return result
}

// fetchAndPlace downloads src into a private staging directory inside bin/,
// extracts the executable and renames it onto target.
func (i *Installer) fetchAndPlace(ctx context.Context, src Source, target string) (int64, error) {
	staging, err := os.MkdirTemp(i.layout.BinDir, ".staging-"+src.Tool.Key()+"-")
	if err != nil {
		return 0, services.Wrap(services.ErrConfiguration, "installer", "stage", "create staging directory", err)
	}
	defer os.RemoveAll(staging)

	archive := filepath.Join(staging, "download")
	written, err := i.downloader.Fetch(ctx, src.URL, archive, string(src.Tool))
	if err != nil {
		return written, err
	}

	want := i.layout.Platform.ExecutableName(src.Tool.Binary())
	extracted, err := extract(src.Kind, archive, staging, want, i.layout.Platform)
	if err != nil {
		return written, services.Wrap(services.ErrExternalTool, "installer", "extract", string(src.Kind)+" artifact", err)
	}
	if !i.layout.Platform.IsWindows() {
		if err := os.Chmod(extracted, 0o755); err != nil {
			return written, fmt.Errorf("chmod %s: %w", want, err)
		}
	}
	if err := os.Rename(extracted, target); err != nil {
		return written, services.Wrap(services.ErrConfiguration, "installer", "place", "move into bin", err)
	}
	return written, nil
}
