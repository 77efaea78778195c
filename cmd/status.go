package cmd

import (
	"fmt"
	"log/slog"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/evanofslack/dyndns/internal/config"
	"github.com/evanofslack/dyndns/internal/state"
)

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last address seen and written for each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.load(config.WithoutAPI())
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.cfg.StatePath == "" {
				return fmt.Errorf("no state store configured, set statePath or DYNDNS_STATE_PATH")
			}
			sm, err := state.New(rt.cfg.StatePath, rt.metrics)
			if err != nil {
				return err
			}
			defer func() {
				if err := sm.Close(); err != nil {
					slog.Warn("Failed to close state store", "error", err)
				}
			}()

			st, err := sm.LoadState(cmd.Context())
			if err != nil {
				return fmt.Errorf("load state: %w", err)
			}

			hosts := make([]string, 0, len(st.Hosts))
			for h := range st.Hosts {
				hosts = append(hosts, h)
			}
			slices.Sort(hosts)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "HOST\tADDRESS\tLAST SEEN\tLAST UPDATED")
			for _, h := range hosts {
				hs := st.Hosts[h]
				address := hs.Address
				if address == "" {
					address = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h, address, formatTime(hs.LastSeenTime()), formatTime(hs.LastUpdatedTime()))
			}
			return w.Flush()
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
