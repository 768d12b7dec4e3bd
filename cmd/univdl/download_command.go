package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"univdl/internal/config"
	"univdl/internal/history"
	"univdl/internal/i18n"
	"univdl/internal/launcher"
	"univdl/internal/platform"
	"univdl/internal/preflight"
	"univdl/internal/services"
)

type downloadFlags struct {
	engine       string
	threads      int
	cookieSource string
	cookieFile   string
	dir          string
	noCheck      bool
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var flags downloadFlags

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a URL with the selected engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, ctx, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.engine, "engine", "e", "", "Engine: native, aria2 or re (default from config)")
	cmd.Flags().IntVarP(&flags.threads, "threads", "t", 0, "Connections per download (1-64)")
	cmd.Flags().StringVar(&flags.cookieSource, "cookies", "", "Cookie source: none, file, or a browser name")
	cmd.Flags().StringVar(&flags.cookieFile, "cookie-file", "", "Netscape cookies.txt to use (implies --cookies file)")
	cmd.Flags().StringVarP(&flags.dir, "dir", "o", "", "Download directory")
	cmd.Flags().BoolVar(&flags.noCheck, "no-check", false, "Trust the exit code only; do not scan output for errors")
	return cmd
}

// buildDownloadRequest applies flag overrides on top of the configured
// defaults and returns the effective config used for preflight and launch.
func buildDownloadRequest(cmd *cobra.Command, cfg *config.Config, target string, flags downloadFlags) (launcher.Request, *config.Config, error) {
	effective := *cfg
	req := launcher.RequestFromConfig(cfg, target)

	if cmd.Flags().Changed("engine") {
		engine, err := launcher.ParseEngine(flags.engine)
		if err != nil {
			return req, nil, services.Wrap(services.ErrValidation, "cli", "download", "invalid --engine", err)
		}
		req.Engine = engine
	}
	if cmd.Flags().Changed("threads") {
		req.Threads = config.ClampThreads(flags.threads)
	}
	if cmd.Flags().Changed("cookie-file") {
		path, err := config.ExpandPath(strings.TrimSpace(flags.cookieFile))
		if err != nil {
			return req, nil, err
		}
		req.CookieFile = path
		req.CookieSource = config.CookieSourceFile
	}
	if cmd.Flags().Changed("cookies") {
		req.CookieSource = config.SanitizeCookieSource(flags.cookieSource)
	}
	if cmd.Flags().Changed("dir") {
		dir, err := config.ExpandPath(strings.TrimSpace(flags.dir))
		if err != nil {
			return req, nil, err
		}
		req.DownloadDir = dir
	}

	effective.Paths.DownloadDir = req.DownloadDir
	effective.Download.Engine = string(req.Engine)
	effective.Download.CookieSource = req.CookieSource
	effective.Download.CookieFile = req.CookieFile
	if flags.noCheck {
		effective.Download.CheckOutput = false
	}
	return req, &effective, nil
}

func runDownload(cmd *cobra.Command, ctx *commandContext, target string, flags downloadFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger()
	if err != nil {
		return err
	}
	cat := ctx.catalog()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	req, effective, err := buildDownloadRequest(cmd, cfg, target, flags)
	if err != nil {
		return err
	}
	engine, err := launcher.ParseEngine(string(req.Engine))
	if err != nil {
		return services.Wrap(services.ErrValidation, "cli", "download", "invalid engine", err)
	}

	results := preflight.RunAll(effective, engine)
	preflight.Log(logger, results)
	if err := preflight.Err(results); err != nil {
		fmt.Fprintln(errOut, cat.T("preflight.failed"))
		return err
	}

	store, err := ctx.openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(out, cat.T("download.engine", engine.Label()))
	printCookieMode(out, cat, req, engine)

	l := launcher.New(effective, logger, launcher.WithHistory(store))
	outcome, runErr := l.Download(runCtx, req, nil)
	if outcome != nil && outcome.Command != nil {
		for _, warning := range outcome.Command.Warnings {
			fmt.Fprintln(errOut, cat.T("download.warning", warning))
		}
	}
	if outcome != nil && outcome.LogPath != "" {
		fmt.Fprintln(out, cat.T("download.job", outcome.JobID, outcome.LogPath))
	}
	return reportOutcome(out, errOut, cat, req, outcome, runErr)
}

func printCookieMode(out io.Writer, cat *i18n.Catalog, req launcher.Request, engine launcher.Engine) {
	source := config.SanitizeCookieSource(req.CookieSource)
	switch {
	case source == config.CookieSourceFile && strings.TrimSpace(req.CookieFile) == "":
		fmt.Fprintln(out, cat.T("cookies.guest"))
	case source == config.CookieSourceFile:
		fmt.Fprintln(out, cat.T("cookies.mode_file"))
	case platform.IsBrowser(source) && engine == launcher.EngineRE:
		fmt.Fprintln(out, cat.T("cookies.re_no_browser"))
	case platform.IsBrowser(source):
		fmt.Fprintln(out, cat.T("cookies.mode_browser", source))
	}
}

func reportOutcome(out, errOut io.Writer, cat *i18n.Catalog, req launcher.Request, outcome *launcher.Outcome, runErr error) error {
	if outcome != nil && outcome.Status == history.StatusCompleted {
		fmt.Fprintln(out, cat.T("download.success"))
		fmt.Fprintln(out, cat.T("download.save_to", req.DownloadDir))
		return nil
	}
	if outcome != nil && outcome.Status == history.StatusStopped {
		fmt.Fprintln(errOut, cat.T("download.stopped"))
		return context.Canceled
	}

	reason := ""
	if outcome != nil {
		reason = outcome.Message
	}
	if reason == "" && runErr != nil {
		reason = runErr.Error()
	}
	fmt.Fprintln(errOut, cat.T("download.failed", reason))
	switch {
	case errors.Is(runErr, services.ErrValidation):
	case errors.Is(runErr, services.ErrNotFound):
		fmt.Fprintln(errOut, cat.T("download.tip_fix"))
	default:
		fmt.Fprintln(errOut, cat.T("download.tip_install"))
	}
	return errReported
}
