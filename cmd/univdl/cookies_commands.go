package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"univdl/internal/config"
	"univdl/internal/cookies"
	"univdl/internal/installer"
	"univdl/internal/platform"
	"univdl/internal/services"
)

func newCookiesCommand(ctx *commandContext) *cobra.Command {
	cookiesCmd := &cobra.Command{
		Use:         "cookies",
		Short:       "Cookie file helpers",
		Annotations: map[string]string{"skipDepsCheck": "true"},
	}

	cookiesCmd.AddCommand(newCookiesHeaderCommand(ctx))
	cookiesCmd.AddCommand(newCookiesPluginCommand(ctx))

	return cookiesCmd
}

func newCookiesHeaderCommand(ctx *commandContext) *cobra.Command {
	var file string
	var maxLen int

	cmd := &cobra.Command{
		Use:   "header <url>",
		Short: "Print the Cookie header N_m3u8DL-RE would send for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.Download.CookieFile
			if strings.TrimSpace(file) != "" {
				if path, err = config.ExpandPath(strings.TrimSpace(file)); err != nil {
					return err
				}
			}
			if strings.TrimSpace(path) == "" {
				return services.Wrap(services.ErrConfiguration, "cli", "cookies header",
					"no cookie file configured; pass --file or set download.cookie_file", nil)
			}
			if _, err := cookies.ParseNetscape(path); err != nil {
				return services.Wrap(services.ErrValidation, "cli", "cookies header", "read cookie file", err)
			}

			header := cookies.HeaderFor(path, args[0], maxLen)
			if header == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), ctx.catalog().T("cookies.none", cookies.HostOf(args[0])))
				return errReported
			}
			fmt.Fprintln(cmd.OutOrStdout(), header)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Netscape cookies.txt (default from config)")
	cmd.Flags().IntVar(&maxLen, "max-length", cookies.DefaultMaxHeaderLen, "Truncate the header to this many bytes")
	return cmd
}

func newCookiesPluginCommand(ctx *commandContext) *cobra.Command {
	var browser string
	var region string

	cmd := &cobra.Command{
		Use:   "plugin [name]",
		Short: "Print the install page of a browser helper extension",
		Long: "Print the install page of a browser helper extension.\n" +
			"Known names: " + strings.Join(cookies.PluginNames(), ", ") + ".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if strings.TrimSpace(browser) == "" {
				browser = defaultPluginBrowser(cfg)
			}
			if strings.TrimSpace(region) == "" {
				region = cfg.Installer.Region
			}
			region = installer.ResolveRegion(cmd.Context(), strings.ToLower(strings.TrimSpace(region)), nil)

			url, err := cookies.PluginURL(name, browser, region)
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "cookies plugin", "no plugin page", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ctx.catalog().T("cookies.plugin", url))
			return nil
		},
	}

	cmd.Flags().StringVar(&browser, "browser", "", "Browser the extension is for (default: configured cookie browser)")
	cmd.Flags().StringVar(&region, "region", "", "Store region: auto, global or cn (default from config)")
	return cmd
}

// defaultPluginBrowser picks the configured cookie browser, else the
// platform's default browser.
func defaultPluginBrowser(cfg *config.Config) string {
	if platform.IsBrowser(cfg.Download.CookieSource) {
		return cfg.Download.CookieSource
	}
	return platform.Current().DefaultCookieSource()
}
