package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/evanofslack/dyndns/internal/config"
	"github.com/evanofslack/dyndns/internal/secrets"
)

func (a *app) authCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the API key pair stored in the OS keyring",
		Long: `Manage the API key pair stored in the OS keyring.

Stored keys are used when api.keyring is true (or DYNDNS_KEYRING=true) and
the config file does not set them.`,
	}

	cmd.AddCommand(a.loginCommand())
	cmd.AddCommand(a.logoutCommand())

	return cmd
}

func (a *app) loginCommand() *cobra.Command {
	var publicKey string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the API key pair in the OS keyring",
		Long: `Store the API key pair in the OS keyring. The private key is read
from the terminal without echo.

Example:
  dyndns auth login --public-key pk_1234`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())

			publicKey = strings.TrimSpace(publicKey)
			if publicKey == "" {
				fmt.Fprint(out, "Enter public key: ")
				line, err := in.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				publicKey = strings.TrimSpace(line)
			}
			if publicKey == "" {
				return fmt.Errorf("public key cannot be empty")
			}

			fmt.Fprint(out, "Enter private key: ")
			privateKey, err := readSecret(cmd.InOrStdin(), in)
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			if privateKey == "" {
				return fmt.Errorf("private key cannot be empty")
			}

			if err := a.store.Set(config.KeyPublicKey, publicKey); err != nil {
				return fmt.Errorf("store public key: %w", err)
			}
			if err := a.store.Set(config.KeyPrivateKey, privateKey); err != nil {
				return fmt.Errorf("store private key: %w", err)
			}

			fmt.Fprintln(out, "Saved API key pair to the keyring. Set api.keyring: true to use it.")
			return nil
		},
	}

	cmd.Flags().StringVar(&publicKey, "public-key", "", "public key (optional, overrides prompt)")

	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the API key pair from the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range []string{config.KeyPublicKey, config.KeyPrivateKey} {
				if err := a.store.Delete(key); err != nil && !errors.Is(err, secrets.ErrNotFound) {
					return fmt.Errorf("remove %s: %w", key, err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed API key pair from the keyring.")
			return nil
		},
	}
}

// readSecret reads without echo from a terminal, and a plain line otherwise.
func readSecret(raw io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := buffered.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
