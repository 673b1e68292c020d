package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger = loggerOrDefault(logger)
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("loaded config file",
		slog.String("path", path),
		slog.Int("profiles", len(cfg.Profiles)),
	)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. The CLI works without any
// config file.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	logger = loggerOrDefault(logger)

	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no config file, using defaults", slog.String("path", path))
		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
// It returns a fully resolved and validated profile ready for use.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*ResolvedProfile, error) {
	logger = loggerOrDefault(logger)

	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, err
	}

	// 3. Resolve profile name: CLI > env > "default"
	profileName := cli.Profile
	if profileName == "" {
		profileName = env.Profile
	}

	// 4. Merge global + profile
	resolved, err := ResolveProfile(cfg, profileName)
	if err != nil {
		return nil, err
	}

	resolved.ConfigPath = cfgPath

	// 5. Apply env overrides
	overrideString(&resolved.AuthURL, env.AuthURL)
	overrideString(&resolved.BaseURL, env.BaseURL)
	overrideString(&resolved.CredentialsFile, env.CredentialsFile)
	overrideString(&resolved.Username, env.Username)
	resolved.Password = env.Password

	// 6. Apply CLI overrides (pointer fields: nil = not specified)
	applyCLIOverrides(resolved, &cli)

	// 7. Fill the profile-dependent credential file default last so that an
	// explicit path at any layer wins.
	if resolved.CredentialsFile == "" {
		resolved.CredentialsFile = DefaultCredentialsPath(resolved.Name)
	}

	resolved.CredentialsFile = expandTilde(resolved.CredentialsFile)

	// 8. Validate the final resolved profile
	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger.Debug("resolved profile",
		slog.String("profile", resolved.Name),
		slog.String("auth_url", resolved.AuthURL),
		slog.String("base_url", resolved.BaseURL),
		slog.String("credentials_file", resolved.CredentialsFile),
	)

	return resolved, nil
}

func applyCLIOverrides(rp *ResolvedProfile, cli *CLIOverrides) {
	if cli.AuthURL != nil {
		rp.AuthURL = *cli.AuthURL
	}

	if cli.BaseURL != nil {
		rp.BaseURL = *cli.BaseURL
	}

	if cli.CredentialsFile != nil {
		rp.CredentialsFile = *cli.CredentialsFile
	}

	if cli.RequestTimeout != nil {
		rp.RequestTimeout = *cli.RequestTimeout
	}

	if cli.Output != nil {
		rp.Output = *cli.Output
	}

	if cli.NoColor {
		rp.Color = ColorNever
	}
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}

	return logger
}
