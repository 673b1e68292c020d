package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvertree/stc/internal/config"
)

// --- buildLogger tests ---

func TestBuildLogger_Bootstrap(t *testing.T) {
	logger := buildLogger(nil, CLIFlags{}, &bytes.Buffer{})

	// Default level is Warn.
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_ConfigLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		below   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &config.ResolvedProfile{}
			cfg.LogLevel = tt.level
			cfg.LogFormat = "text"

			logger := buildLogger(cfg, CLIFlags{}, &bytes.Buffer{})
			assert.True(t, logger.Handler().Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Handler().Enabled(context.Background(), tt.below))
		})
	}
}

func TestBuildLogger_FlagsOverrideConfig(t *testing.T) {
	cfg := &config.ResolvedProfile{}
	cfg.LogLevel = "error"

	verbose := buildLogger(cfg, CLIFlags{Verbose: true}, &bytes.Buffer{})
	assert.True(t, verbose.Handler().Enabled(context.Background(), slog.LevelDebug))

	cfg.LogLevel = "debug"

	quiet := buildLogger(cfg, CLIFlags{Quiet: true}, &bytes.Buffer{})
	assert.False(t, quiet.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, quiet.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestBuildLogger_JSONFormat(t *testing.T) {
	cfg := &config.ResolvedProfile{}
	cfg.LogLevel = "info"
	cfg.LogFormat = "json"

	var buf bytes.Buffer
	buildLogger(cfg, CLIFlags{}, &buf).Info("hello", "k", "v")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

// --- flag plumbing tests ---

func TestCLIOverrides_OnlyChangedFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--base-url", "https://x.example.com", "--no-color", "--profile", "work"}))

	var flags CLIFlags
	flags.BaseURL, _ = cmd.Flags().GetString("base-url")
	flags.Profile, _ = cmd.Flags().GetString("profile")
	flags.NoColor, _ = cmd.Flags().GetBool("no-color")

	cli := cliOverrides(cmd, flags)
	require.NotNil(t, cli.BaseURL)
	assert.Equal(t, "https://x.example.com", *cli.BaseURL)
	assert.Nil(t, cli.AuthURL)
	assert.Nil(t, cli.CredentialsFile)
	assert.Nil(t, cli.RequestTimeout)
	assert.Nil(t, cli.Output)
	assert.Equal(t, "work", cli.Profile)
	assert.True(t, cli.NoColor)
}

func TestNewRootCmd_RegistersCommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{
		"login", "logout", "ping", "session", "config", "dbs", "colls", "count", "drop",
		"insert", "all", "first", "last", "get", "find", "update", "update-many", "delete",
	} {
		found, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, found.Name())
	}
}

func TestDocumentCommands_ShortFlags(t *testing.T) {
	cmd := newUpdateManyCmd()

	for short, long := range map[string]string{"b": "database", "c": "collection", "q": "query", "d": "document"} {
		f := cmd.Flags().ShorthandLookup(short)
		require.NotNil(t, f, short)
		assert.Equal(t, long, f.Name)
	}

	assert.Nil(t, cmd.Flags().Lookup("id"))
}

func TestMustCLIContext_PanicsWhenMissing(t *testing.T) {
	assert.Panics(t, func() { mustCLIContext(context.Background()) })

	cc := &CLIContext{}
	ctx := context.WithValue(context.Background(), cliContextKey{}, cc)
	assert.Same(t, cc, mustCLIContext(ctx))
}

func TestLoadConfig_StoresContext(t *testing.T) {
	cliEnv(t)

	var got *CLIContext

	cmd := newRootCmd()
	cmd.AddCommand(&cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			got = mustCLIContext(cmd.Context())
			return nil
		},
	})
	cmd.SetArgs([]string{"--timeout", "5s", "--credentials", "/tmp/stc-test/creds.json", "probe"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, got)
	assert.Equal(t, "5s", got.Cfg.RequestTimeout)
	assert.Equal(t, "/tmp/stc-test/creds.json", got.Cfg.CredentialsFile)
	assert.Equal(t, config.DefaultProfileName, got.Cfg.Name)
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"frobnicate"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), `Error: unknown command "frobnicate"`)
}
