package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evanofslack/dyndns/internal/config"
	"github.com/evanofslack/dyndns/internal/provider/zoneapi"
	"github.com/evanofslack/dyndns/internal/source/myip"
)

func (a *app) ipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ip",
		Short: "Print this machine's public IPv4 address",
		Long: `Print this machine's public IPv4 address as reported by source.url.
API credentials are not required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.load(config.WithoutAPI())
			if err != nil {
				return err
			}
			defer rt.Close()

			addr, err := myip.New(rt.cfg.Source.URL, rt.cfg.API.Timeout, rt.metrics).ExternalIP(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}

func (a *app) zonesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "List the zones available to the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.load()
			if err != nil {
				return err
			}
			defer rt.Close()

			dp, err := zoneapi.New(rt.cfg.API, rt.metrics)
			if err != nil {
				return err
			}
			zones, err := dp.ListZones(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, z := range zones {
				fmt.Fprintf(w, "%s\t%s\n", z.ID, z.Name)
			}
			return w.Flush()
		},
	}
}

func (a *app) recordsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "records <domain>",
		Short: "List the records of a zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.load()
			if err != nil {
				return err
			}
			defer rt.Close()

			dp, err := zoneapi.New(rt.cfg.API, rt.metrics)
			if err != nil {
				return err
			}
			records, err := dp.ListRecords(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tCONTENT\tTTL\tPRIO\tDISABLED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", r.Name, r.Type, r.Content, r.TTL, r.Priority, strconv.FormatBool(r.Disabled))
			}
			return w.Flush()
		},
	}
}
