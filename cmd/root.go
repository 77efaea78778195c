package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evanofslack/dyndns/internal/config"
	"github.com/evanofslack/dyndns/internal/logger"
	"github.com/evanofslack/dyndns/internal/metrics"
	"github.com/evanofslack/dyndns/internal/secrets"
)

const defaultConfigPath = "dyndns.yaml"

// app holds the global flags shared by every command.
type app struct {
	configPath      string
	logLevel        string
	metricsTextfile string
	store           secrets.Store
}

func NewRootCommand() *cobra.Command {
	a := &app{store: secrets.NewKeyringStore(secrets.ServiceName)}

	cmd := &cobra.Command{
		Use:   "dyndns",
		Short: "Keep a DNS A record pointed at this machine's public IPv4 address",
		Long: `dyndns looks up the public IPv4 address of this machine, compares it
with the address currently published for a host name and updates the
provider's A record when they differ.

Quick start:
  dyndns auth login                 # Store the API key pair in the keyring
  dyndns update home.example.com    # Update the record if required
  dyndns update --force             # Write record.name regardless of DNS`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigPath, "path to the YAML or INI config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file after the run")

	cmd.AddCommand(a.updateCommand())
	cmd.AddCommand(a.ipCommand())
	cmd.AddCommand(a.zonesCommand())
	cmd.AddCommand(a.recordsCommand())
	cmd.AddCommand(a.statusCommand())
	cmd.AddCommand(a.authCommand())
	cmd.AddCommand(versionCommand())

	return cmd
}

// Run executes the command line and returns the process exit code. Errors are
// written to stderr prefixed with "ERROR: ".
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Debug("Command failed", "error", fmt.Sprintf("%#v", err))
		fmt.Fprintf(stderr, "ERROR: %s\n", err)
		return 1
	}
	return 0
}

// runtime is the configured environment of one command invocation.
type runtime struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	closeLog io.Closer
}

func (a *app) load(opts ...config.Option) (*runtime, error) {
	opts = append([]config.Option{config.WithSecretStore(a.store)}, opts...)
	cfg, err := config.Load(a.configPath, opts...)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.metricsTextfile != "" {
		cfg.Metrics.Textfile = a.metricsTextfile
	}

	closer := logger.Configure(cfg.Log)
	slog.Debug("Loaded config", "path", a.configPath, "base_url", cfg.API.BaseURL, "credentials", cfg.API.Credentials())

	return &runtime{cfg: cfg, metrics: metrics.New(true), closeLog: closer}, nil
}

// Close writes the metrics textfile when configured and closes the log output.
func (r *runtime) Close() {
	if path := r.cfg.Metrics.Textfile; path != "" {
		if err := r.metrics.WriteTextfile(path); err != nil {
			slog.Warn("Failed to write metrics textfile", "path", path, "error", err)
		} else {
			slog.Debug("Wrote metrics textfile", "path", path)
		}
	}
	if err := r.closeLog.Close(); err != nil {
		slog.Warn("Failed to close log output", "error", err)
	}
}
