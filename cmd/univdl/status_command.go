package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"univdl/internal/deps"
	"univdl/internal/history"
	"univdl/internal/launcher"
	"univdl/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var engineFlag string

	cmd := &cobra.Command{
		Use:         "status",
		Short:       "Show whether downloads are ready to run",
		Annotations: map[string]string{"skipDepsCheck": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cat := ctx.catalog()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			engines := launcher.Engines()
			if strings.TrimSpace(engineFlag) != "" {
				engine, err := launcher.ParseEngine(engineFlag)
				if err != nil {
					return err
				}
				engines = []launcher.Engine{engine}
			}

			var lines []string
			lines = append(lines, renderSectionHeader("Paths", colorize)...)
			lines = append(lines,
				renderStatusLine(cat, "Config", statusInfo, ctx.configPath, colorize),
				renderStatusLine(cat, "bin", resultKind(preflight.CheckDirectoryAccess("bin", cfg.Paths.BinDir)), cfg.Paths.BinDir, colorize),
				renderResultLine(cat, preflight.CheckDownloadDir("Downloads", cfg.Paths.DownloadDir), colorize),
			)
			if cfg.Download.CookieSource != "" {
				lines = append(lines, renderStatusLine(cat, "Cookies", statusInfo, cfg.Download.CookieSource, colorize))
			}

			layout := deps.NewLayout(cfg.Paths.BinDir)
			anyFailed := false
			for _, engine := range engines {
				lines = append(lines, "")
				title := "Engine " + string(engine) + " (" + engine.Label() + ")"
				if string(engine) == cfg.Download.Engine {
					title += " *"
				}
				lines = append(lines, renderSectionHeader(title, colorize)...)
				for _, result := range preflight.CheckEngine(layout, engine) {
					if !result.Passed && string(engine) == cfg.Download.Engine {
						anyFailed = true
					}
					lines = append(lines, renderResultLine(cat, result, colorize))
				}
			}

			if store, err := ctx.openHistory(cmd); err == nil {
				stats, statErr := store.Stats(cmd.Context())
				_ = store.Close()
				if statErr == nil {
					lines = append(lines, "")
					lines = append(lines, renderSectionHeader("History", colorize)...)
					for _, status := range []history.Status{history.StatusRunning, history.StatusCompleted, history.StatusFailed, history.StatusStopped} {
						lines = append(lines, renderStatusLine(cat, string(status), statusInfo, fmt.Sprintf("%d", stats[status]), colorize))
					}
				}
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if anyFailed {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&engineFlag, "engine", "e", "", "Only check one engine")
	return cmd
}
