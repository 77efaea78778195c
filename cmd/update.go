package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evanofslack/dyndns/internal/provider/zoneapi"
	"github.com/evanofslack/dyndns/internal/reconcile"
	"github.com/evanofslack/dyndns/internal/resolver"
	"github.com/evanofslack/dyndns/internal/source/myip"
	"github.com/evanofslack/dyndns/internal/state"
)

func (a *app) updateCommand() *cobra.Command {
	var (
		force  bool
		dryRun bool
		ip     string
	)

	cmd := &cobra.Command{
		Use:   "update [fqdn]",
		Short: "Update the A record of a host if its published address is stale",
		Long: `Look up this machine's public IPv4 address and the address currently
published for the host. When they differ, or with --force, write the A
record through the provider API.

The host defaults to record.name from the config file.

Example:
  dyndns update home.example.com
  dyndns update --ip 203.0.113.9 --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.load()
			if err != nil {
				return err
			}
			defer rt.Close()

			fqdn := rt.cfg.Record.Name
			if len(args) == 1 {
				fqdn = strings.TrimSpace(args[0])
			}
			if fqdn == "" {
				return fmt.Errorf("no host given and record.name is not set")
			}
			if dryRun {
				rt.cfg.Record.DryRun = true
			}

			start := time.Now()
			result, err := a.update(cmd.Context(), rt, fqdn, ip, force)
			rt.metrics.SetRunDuration(time.Since(start))
			rt.metrics.IncRun(err == nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case result.Updated:
				fmt.Fprintf(out, "Updated %s to %s.\n", result.Host, result.Address)
			case result.Required:
				fmt.Fprintf(out, "Would update %s to %s.\n", result.Host, result.Address)
			default:
				fmt.Fprintln(out, "No update required.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "write the record without checking the published address")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "decide but do not write the record")
	cmd.Flags().StringVar(&ip, "ip", "", "use this IPv4 address instead of asking the IP service")

	return cmd
}

func (a *app) update(ctx context.Context, rt *runtime, fqdn, ip string, force bool) (reconcile.Result, error) {
	addr, err := a.externalIP(ctx, rt, ip)
	if err != nil {
		return reconcile.Result{}, err
	}

	sm, err := state.New(rt.cfg.StatePath, rt.metrics)
	if err != nil {
		return reconcile.Result{}, err
	}
	defer func() {
		if err := sm.Close(); err != nil {
			slog.Warn("Failed to close state store", "error", err)
		}
	}()

	dp, err := zoneapi.New(rt.cfg.API, rt.metrics)
	if err != nil {
		return reconcile.Result{}, err
	}

	engine := reconcile.NewEngine(sm, dp, resolver.New(rt.cfg.Resolver), rt.cfg, rt.metrics)
	slog.Info("Starting update", "host", fqdn, "ip", addr, "force", force, "dry_run", rt.cfg.Record.DryRun)
	return engine.Reconcile(ctx, fqdn, addr, force)
}

func (a *app) externalIP(ctx context.Context, rt *runtime, ip string) (netip.Addr, error) {
	if ip != "" {
		addr, err := netip.ParseAddr(strings.TrimSpace(ip))
		if err != nil {
			return netip.Addr{}, fmt.Errorf("invalid --ip %q: %w", ip, err)
		}
		if !addr.Unmap().Is4() {
			return netip.Addr{}, fmt.Errorf("invalid --ip %q: %w", ip, reconcile.ErrNotIPv4)
		}
		return addr.Unmap(), nil
	}
	return myip.New(rt.cfg.Source.URL, rt.cfg.API.Timeout, rt.metrics).ExternalIP(ctx)
}
