package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"univdl/internal/history"
	"univdl/internal/logs"
	"univdl/internal/services"
)

const urlColumnWidth = 48

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:         "history",
		Short:       "Inspect past downloads",
		Annotations: map[string]string{"skipDepsCheck": "true"},
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	historyCmd.AddCommand(newHistoryLogCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFlags []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			store, err := ctx.openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit, statuses...)
			if err != nil {
				return err
			}
			if asJSON {
				return writeRecordsJSON(cmd.OutOrStdout(), records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, ctx.catalog().T("history.empty"))
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					shortID(rec.ID),
					string(rec.Status),
					rec.Engine,
					truncate(rec.URL, urlColumnWidth),
					humanize.Time(rec.CreatedAt),
					formatDuration(rec.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{col("ID"), col("Status"), col("Engine"), col("URL"), col("Started"), rightCol("Took")},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show (0 for all)")
	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by status (running, completed, failed, stopped)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one download (an ID prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := lookupRecord(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, toRecordJSON(rec))
			}
			fields := [][2]string{
				{"ID", rec.ID},
				{"URL", rec.URL},
				{"Status", string(rec.Status)},
				{"Engine", rec.Engine},
				{"Threads", strconv.Itoa(rec.Threads)},
				{"Cookies", rec.CookieSource},
				{"Directory", rec.DownloadDir},
				{"Exit code", strconv.Itoa(rec.ExitCode)},
				{"Started", rec.CreatedAt.Local().Format(time.DateTime)},
				{"Took", formatDuration(rec.Duration())},
				{"Log", rec.LogPath},
			}
			if rec.ErrorMessage != "" {
				fields = append(fields, [2]string{"Error", rec.ErrorMessage})
			}
			for _, f := range fields {
				fmt.Fprintf(out, "%-10s %s\n", f[0]+":", f[1])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete finished downloads from history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []history.Status
			if failedOnly {
				statuses = []history.Status{history.StatusFailed, history.StatusStopped}
			}
			removed, err := store.Clear(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ctx.catalog().T("history.cleared", removed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only delete failed and stopped downloads")
	return cmd
}

func newHistoryLogCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "log <id>",
		Short: "Print the log of a download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := lookupRecord(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(rec.LogPath) == "" {
				return fmt.Errorf("download %s has no log file", shortID(rec.ID))
			}

			out := cmd.OutOrStdout()
			emit := func(line string) {
				if !raw {
					line = logs.FormatRecord(line)
				}
				fmt.Fprintln(out, line)
			}

			tail, offset, err := logs.Tail(rec.LogPath, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				emit(line)
			}
			if !follow || rec.Status.IsTerminal() {
				return nil
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			finished := func() bool {
				current, err := store.Get(runCtx, rec.ID)
				// A cleared record cannot finish any more.
				return err != nil || current == nil || current.Status.IsTerminal()
			}
			_, err = logs.Follow(runCtx, rec.LogPath, offset, logs.DefaultPollInterval, finished, emit)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until the download finishes")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON records unchanged")
	return cmd
}

// lookupRecord resolves an ID or ID prefix. Unknown and too-short IDs are
// reported as not found.
func lookupRecord(ctx context.Context, store *history.Store, id string) (*history.Record, error) {
	rec, err := store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, services.Wrap(services.ErrNotFound, "history", "lookup",
			fmt.Sprintf("download %q not found", id), nil)
	}
	return rec, nil
}

func parseStatuses(values []string) ([]history.Status, error) {
	statuses := make([]history.Status, 0, len(values))
	for _, value := range values {
		status, err := history.ParseStatus(value)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, width int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= width {
		return string(runes)
	}
	return string(runes[:width-1]) + "…"
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
