package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"univdl/internal/platform"
)

func newOpenCommand(ctx *commandContext) *cobra.Command {
	var which string

	cmd := &cobra.Command{
		Use:         "open",
		Short:       "Open the download folder in the file manager",
		Annotations: map[string]string{"skipDepsCheck": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := cfg.Paths.DownloadDir
			switch which {
			case "", "downloads":
			case "bin":
				dir = cfg.Paths.BinDir
			case "logs":
				dir = cfg.Paths.LogDir
			default:
				return fmt.Errorf("unknown folder %q (want downloads, bin or logs)", which)
			}
			if err := platform.OpenFolder(cmd.Context(), dir); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ctx.catalog().T("open.failed", err))
				return errReported
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&which, "folder", "downloads", "Folder to open: downloads, bin or logs")
	return cmd
}
