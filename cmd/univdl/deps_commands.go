package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"univdl/internal/deps"
	"univdl/internal/installer"
	"univdl/internal/services"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	depsCmd := &cobra.Command{
		Use:         "deps",
		Short:       "Inspect and install the vendored binaries",
		Annotations: map[string]string{"skipDepsCheck": "true"},
	}

	depsCmd.AddCommand(newDepsStatusCommand(ctx))
	depsCmd.AddCommand(newDepsVerifyCommand(ctx))
	depsCmd.AddCommand(newDepsInstallCommand(ctx))

	return depsCmd
}

func newDepsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where each tool is found",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := ctx.layout()
			statuses := layout.Inspect()
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{
					status.Name,
					locationLabel(status),
					status.Command,
					fileSize(status),
					status.Description,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bin: %s\n", layout.BinDir)
			fmt.Fprintln(out, renderTable(
				[]column{col("Tool"), col("Found"), col("Path"), rightCol("Size"), col("Purpose")},
				rows,
			))
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				fmt.Fprintln(out, ctx.catalog().T("deps.missing", strings.Join(missing, ", ")))
			}
			return nil
		},
	}
}

func newDepsVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run every tool's version check",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := ctx.catalog()
			statuses := ctx.layout().Verify(cmd.Context())
			rows := make([][]string, 0, len(statuses))
			broken := 0
			for _, status := range statuses {
				detail := status.Version
				if !status.Available {
					detail = status.Detail
				}
				if deps.Broken(status) {
					broken++
				}
				rows = append(rows, []string{status.Name, locationLabel(status), detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]column{col("Tool"), col("Found"), col("Version")}, rows))

			if broken > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), cat.T("deps.broken", broken))
				return errReported
			}
			if missing := deps.MissingTools(statuses, false); len(missing) > 0 {
				return services.Wrap(services.ErrNotFound, "cli", "deps verify",
					"missing "+joinTools(missing)+"; run univdl deps install", nil)
			}
			fmt.Fprintln(out, cat.T("deps.verified"))
			return nil
		},
	}
}

func newDepsInstallCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var repair bool
	var region string

	cmd := &cobra.Command{
		Use:   "install [tool...]",
		Short: "Download missing tools into bin/",
		Long: "Download missing tools into bin/. With no arguments every tool is considered;\n" +
			"name tools (yt-dlp, ffmpeg, aria2, N_m3u8DL-RE) to limit the run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			cat := ctx.catalog()

			tools := make([]deps.Tool, 0, len(args))
			for _, arg := range args {
				tool, err := deps.ParseTool(arg)
				if err != nil {
					return services.Wrap(services.ErrValidation, "cli", "deps install", "invalid tool", err)
				}
				tools = append(tools, tool)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			inst := installer.New(cfg, logger)
			fmt.Fprintln(out, cat.T("deps.installing", cfg.Paths.BinDir, regionLabel(region, cfg.Installer.Region)))
			report, err := inst.InstallAll(runCtx, installer.Options{
				Force:  force,
				Repair: repair,
				Region: region,
				Tools:  tools,
			})
			if report != nil {
				fmt.Fprintln(out, renderInstallReport(report))
			}
			if err != nil {
				return err
			}
			if !report.OK() {
				fmt.Fprintln(cmd.ErrOrStderr(), cat.T("deps.failed", len(report.Failed())))
				return errReported
			}
			fmt.Fprintln(out, cat.T("deps.done", report.BinDir))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reinstall tools that are already present")
	cmd.Flags().BoolVar(&repair, "repair", false, "Reinstall tools that fail their version check")
	cmd.Flags().StringVar(&region, "region", "", "Download region: auto, global or cn (default from config)")
	return cmd
}

func renderInstallReport(report *installer.Report) string {
	rows := make([][]string, 0, len(report.Results))
	for _, result := range report.Results {
		size := ""
		if result.Bytes > 0 {
			size = humanize.Bytes(uint64(result.Bytes))
		}
		detail := result.Version
		if result.Err != nil {
			detail = result.Err.Error()
		}
		rows = append(rows, []string{string(result.Tool), string(result.Action), size, detail})
	}
	return renderTable(
		[]column{col("Tool"), col("Action"), rightCol("Size"), {Title: "Detail", Width: 60}},
		rows,
	)
}

func locationLabel(status deps.Status) string {
	switch {
	case status.Available && status.Location != "":
		return status.Location
	case status.Available:
		return yesNo(true)
	case status.Optional:
		return "no (optional)"
	default:
		return yesNo(false)
	}
}

func fileSize(status deps.Status) string {
	if !status.Available {
		return ""
	}
	info, err := os.Stat(status.Command)
	if err != nil {
		return ""
	}
	return humanize.Bytes(uint64(info.Size()))
}

func regionLabel(flag, configured string) string {
	if value := strings.TrimSpace(flag); value != "" {
		return value
	}
	return configured
}

func joinTools(tools []deps.Tool) string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, string(tool))
	}
	return strings.Join(names, ", ")
}
