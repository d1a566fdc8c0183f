package cmd

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
)

func newDNSCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dns-check [host]",
		Short: "Resolves a host with the system resolver and the configured nameservers",
		Long: `Prints how host resolves through the system resolver and through
scraper.smart_dns (or /etc/resolv.conf when none are set). Lookup failures are
reported inline. host defaults to the host of scraper.base_url.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			host := e.cfg.Scraper.BaseHost()
			if len(args) == 1 {
				host = args[0]
			}
			if host == "" {
				return errors.New("no host given and scraper.base_url has none")
			}

			report := newResolver(e.cfg, e.logger).ResolveDebug(cmd.Context(), host)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
