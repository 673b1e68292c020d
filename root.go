package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/silvertree/stc/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// CLIFlags holds the global persistent flags. Each root command owns its own
// instance, so tests can build fresh commands without resetting globals.
type CLIFlags struct {
	ConfigPath  string
	Profile     string
	AuthURL     string
	BaseURL     string
	Credentials string
	Timeout     string
	Output      string
	NoColor     bool
	Verbose     bool
	Quiet       bool
}

// CLIContext is built once per invocation by the root PersistentPreRunE and
// carried on the command context to every subcommand.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.ResolvedProfile
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer

	palette palette
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by the root pre-run. Every
// subcommand runs after it, so a missing context is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		panic("stc: CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	var flags CLIFlags

	cmd := &cobra.Command{
		Use:     "stc",
		Short:   "Silver Tree document store client",
		Long:    "A command-line client for the Silver Tree document store and its authentication service.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd, flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.StringVar(&flags.Profile, "profile", "", "config profile to use")
	pf.StringVar(&flags.AuthURL, "auth-url", "", "authentication service URL")
	pf.StringVar(&flags.BaseURL, "base-url", "", "document service URL")
	pf.StringVar(&flags.Credentials, "credentials", "", "credential file path")
	pf.StringVar(&flags.Timeout, "timeout", "", "per-request timeout (e.g. 30s, 0 for none)")
	pf.StringVar(&flags.Output, "output", "", "result format: json, yaml, or table")
	pf.BoolVar(&flags.NoColor, "no-color", false, "disable colored status output")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&flags.Quiet, "quiet", false, "suppress status output and non-error logs")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newPingCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDatabasesCmd())
	cmd.AddCommand(newCollectionsCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newDropCmd())
	cmd.AddCommand(newInsertCmd())
	cmd.AddCommand(newAllCmd())
	cmd.AddCommand(newFirstCmd())
	cmd.AddCommand(newLastCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newUpdateManyCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores a CLIContext on the command.
func loadConfig(cmd *cobra.Command, flags CLIFlags) error {
	stderr := cmd.ErrOrStderr()
	bootstrap := buildLogger(nil, flags, stderr)

	resolved, err := config.Resolve(
		config.ReadEnvOverrides(bootstrap),
		cliOverrides(cmd, flags),
		bootstrap,
	)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc := &CLIContext{
		Flags:   flags,
		Cfg:     resolved,
		Logger:  buildLogger(resolved, flags, stderr),
		Stdout:  cmd.OutOrStdout(),
		Stderr:  stderr,
		palette: newPalette(resolved.Color, stderr),
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// cliOverrides passes only explicitly set flags to the resolver so that an
// empty flag never masks a config or environment value.
func cliOverrides(cmd *cobra.Command, flags CLIFlags) config.CLIOverrides {
	cli := config.CLIOverrides{
		ConfigPath: flags.ConfigPath,
		Profile:    flags.Profile,
		NoColor:    flags.NoColor,
	}

	changed := func(name string, value string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}

		return &value
	}

	cli.AuthURL = changed("auth-url", flags.AuthURL)
	cli.BaseURL = changed("base-url", flags.BaseURL)
	cli.CredentialsFile = changed("credentials", flags.Credentials)
	cli.RequestTimeout = changed("timeout", flags.Timeout)
	cli.Output = changed("output", flags.Output)

	return cli
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. A nil cfg yields the
// bootstrap logger used while the config itself is being resolved.
func buildLogger(cfg *config.ResolvedProfile, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	format := "text"

	// Config-based log level (lower priority than CLI flags).
	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	// CLI flags override config (highest priority).
	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// newHTTPClient returns an HTTP client bounded by the configured request
// timeout. Zero disables the timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
