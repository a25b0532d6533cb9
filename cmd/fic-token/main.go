// fic-token acquires a downstream access token through the federated
// credential exchange (or the configured callback issuer) and prints it to
// stdout, so scripts can use it as a bearer token.
//
// Configuration comes from a TOML file (--config or FIC_CONFIG_PATH) with
// FIC_* environment variables filling any value the file leaves empty.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	fic "github.com/giantswarm/mcp-fic"
	"github.com/giantswarm/mcp-fic/credentials"
)

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func run() error {
	var (
		configPath string
		subject    string
		authority  string
		timeout    time.Duration
		verbose    bool
		audit      bool
	)

	flagSet := pflag.NewFlagSet("fic-token", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", os.Getenv(credentials.EnvConfigPath), "path to the TOML configuration file")
	flagSet.StringVarP(&subject, "subject", "s", "", "user to act for (UPN or object id); empty uses the configured default")
	flagSet.StringVar(&authority, "authority", "", "identity provider base URL (default: "+fic.DefaultAuthorityHost+")")
	flagSet.DurationVar(&timeout, "timeout", 30*time.Second, "overall acquisition timeout")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log token requests to stderr")
	flagSet.BoolVar(&audit, "audit", false, "log token lifecycle events with hashed subjects")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	src := &credentials.Source{}
	if configPath != "" {
		loaded, err := credentials.LoadFile(configPath)
		if err != nil {
			return err
		}
		src = loaded
	}

	svc, err := fic.New(&fic.Config{
		AuthorityHost:      authority,
		CleanupInterval:    -1,
		EnableAuditLogging: audit,
		Logger:             logger,
	})
	if err != nil {
		return err
	}
	defer svc.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tok, err := svc.AcquireToken(ctx, src, subject)
	if err != nil {
		logger.Debug("Token acquisition failed", "error", err)
		return &exitError{code: 1, msg: fic.Describe(err)}
	}

	fmt.Fprintln(os.Stdout, tok.AccessToken)
	fmt.Fprintf(os.Stderr, "expires at %s (in %s)\n",
		tok.ExpiresAt.Format(time.RFC3339), time.Until(tok.ExpiresAt).Round(time.Second))
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `fic-token acquires a delegated access token via federated credentials.

The token is written to stdout; its expiry goes to stderr. When no token can
be obtained the command exits with status 1.

Usage:
  fic-token [flags]

Examples:
  # Token for the default subject from the configuration file
  fic-token --config fic.toml

  # Token on behalf of a specific user
  fic-token --config fic.toml --subject alice@example.com

  # Service-only token, configured entirely from FIC_* variables
  fic-token

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
