package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"univdl/internal/config"
	"univdl/internal/deps"
	"univdl/internal/history"
	"univdl/internal/i18n"
	"univdl/internal/logging"
	"univdl/internal/platform"
)

// errReported marks failures whose message was already printed, so main
// only sets the exit code.
var errReported = errors.New("failure already reported")

type commandContext struct {
	configFlag *string
	langFlag   *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	log        *slog.Logger
	logErr     error
}

func newCommandContext(configFlag, langFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		langFlag:   langFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logErr = err
			return
		}
		c.log, c.logErr = logging.NewFromConfig(cfg)
	})
	return c.log, c.logErr
}

// catalog picks the message language: --lang, then config, then locale.
func (c *commandContext) catalog() *i18n.Catalog {
	if c.langFlag != nil && strings.TrimSpace(*c.langFlag) != "" {
		return i18n.New(*c.langFlag)
	}
	if c.config != nil {
		return i18n.New(c.config.Lang)
	}
	return i18n.New(config.LangAuto)
}

func (c *commandContext) layout() deps.Layout {
	cfg, _ := c.ensureConfig()
	if cfg == nil {
		return deps.NewLayout("")
	}
	return deps.NewLayout(cfg.Paths.BinDir)
}

// openHistory opens the store and fails records whose process died.
func (c *commandContext) openHistory(cmd *cobra.Command) (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := store.MarkInterrupted(cmd.Context(), platform.ProcessAlive); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("mark interrupted downloads: %w", err)
	}
	return store, nil
}

// warnMissingDeps logs a warning when yt-dlp or ffmpeg cannot be found and
// prints the translated hint to out.
func (c *commandContext) warnMissingDeps(out io.Writer) {
	layout := c.layout()
	logger, err := c.logger()
	if err != nil {
		logger = logging.NewNop()
	}
	cat := c.catalog()
	if _, _, ok := layout.Resolve(deps.ToolYtDlp); !ok {
		logging.WarnWithContext(logger, "yt-dlp not found", "check_deps_on_start",
			logging.Alert("missing_dependency"),
			logging.Tool(string(deps.ToolYtDlp)),
			logging.Impact("native and aria2 downloads will fail"),
			logging.Hint("run univdl deps install"),
		)
		fmt.Fprintln(out, cat.T("env.ytdlp_missing"))
	}
	if ffmpeg := deps.FFmpegFor(layout.BinDir); !ffmpeg.Available {
		logging.WarnWithContext(logger, "ffmpeg not found", "check_deps_on_start",
			logging.Alert("missing_dependency"),
			logging.Tool(string(deps.ToolFFmpeg)),
			logging.Impact("merging audio and video streams will fail"),
			logging.Hint("run univdl deps install"),
		)
		fmt.Fprintln(out, cat.T("env.ffmpeg_missing"))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	return hasAnnotation(cmd, "skipConfigLoad")
}

func shouldSkipDepsCheck(cmd *cobra.Command) bool {
	return hasAnnotation(cmd, "skipDepsCheck")
}

func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
