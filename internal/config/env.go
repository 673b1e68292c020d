package config

import (
	"log/slog"
	"os"
)

// Environment variable names for overrides.
const (
	EnvConfig          = "STC_CONFIG"
	EnvProfile         = "STC_PROFILE"
	EnvAuthURL         = "STC_AUTH_URL"
	EnvBaseURL         = "STC_BASE_URL"
	EnvCredentialsFile = "STC_CREDENTIALS_FILE"
	EnvUsername        = "STC_USERNAME"
	EnvPassword        = "STC_PASSWORD"
)

// EnvOverrides holds values derived from environment variables.
// These are resolved by ReadEnvOverrides and applied by Resolve.
type EnvOverrides struct {
	ConfigPath      string // STC_CONFIG: override config file path
	Profile         string // STC_PROFILE: active profile name
	AuthURL         string // STC_AUTH_URL
	BaseURL         string // STC_BASE_URL
	CredentialsFile string // STC_CREDENTIALS_FILE
	Username        string // STC_USERNAME: default for login
	Password        string // STC_PASSWORD: default for login, never logged
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath:      os.Getenv(EnvConfig),
		Profile:         os.Getenv(EnvProfile),
		AuthURL:         os.Getenv(EnvAuthURL),
		BaseURL:         os.Getenv(EnvBaseURL),
		CredentialsFile: os.Getenv(EnvCredentialsFile),
		Username:        os.Getenv(EnvUsername),
		Password:        os.Getenv(EnvPassword),
	}

	if logger != nil {
		logger.Debug("read environment overrides",
			slog.String("config_path", env.ConfigPath),
			slog.String("profile", env.Profile),
			slog.String("auth_url", env.AuthURL),
			slog.String("base_url", env.BaseURL),
			slog.String("credentials_file", env.CredentialsFile),
			slog.Bool("password_set", env.Password != ""),
		)
	}

	return env
}
