package config

import (
	"fmt"
	"sort"
	"time"
)

// DefaultProfileName is used when neither --profile nor STC_PROFILE is set.
const DefaultProfileName = "default"

// Profile is a named set of overrides within a TOML config file. Non-empty
// fields replace the corresponding global values.
type Profile struct {
	AuthURL         string `toml:"auth_url"`
	BaseURL         string `toml:"base_url"`
	CredentialsFile string `toml:"credentials_file"`
	Username        string `toml:"username"`
}

// ResolvedProfile contains the effective settings after merging global
// values, the selected profile, the environment, and CLI flags. This is the
// final product consumed by the CLI.
type ResolvedProfile struct {
	Name       string
	ConfigPath string
	Username   string
	Password   string // from STC_PASSWORD only, never rendered

	ServerConfig
	NetworkConfig
	LoggingConfig
	OutputConfig
}

// Timeout returns the parsed request timeout. Validation guarantees the
// value parses; a zero result means no timeout.
func (rp *ResolvedProfile) Timeout() time.Duration {
	d, err := time.ParseDuration(rp.RequestTimeout)
	if err != nil {
		return 0
	}

	return d
}

// ResolveProfile merges global settings with profile-specific overrides.
// An empty profileName selects the default profile, which needs no
// [profile.default] table. A named profile must exist when the config file
// defines any profiles.
func ResolveProfile(cfg *Config, profileName string) (*ResolvedProfile, error) {
	name := profileName
	if name == "" {
		name = DefaultProfileName
	}

	profile, ok := cfg.Profiles[name]
	if !ok && name != DefaultProfileName && len(cfg.Profiles) > 0 {
		return nil, unknownProfileError(cfg, name)
	}

	resolved := &ResolvedProfile{
		Name:          name,
		ServerConfig:  cfg.ServerConfig,
		NetworkConfig: cfg.NetworkConfig,
		LoggingConfig: cfg.LoggingConfig,
		OutputConfig:  cfg.OutputConfig,
		Username:      profile.Username,
	}

	overrideString(&resolved.AuthURL, profile.AuthURL)
	overrideString(&resolved.BaseURL, profile.BaseURL)
	overrideString(&resolved.CredentialsFile, profile.CredentialsFile)

	return resolved, nil
}

// unknownProfileError reports a missing profile, suggesting the closest
// defined name.
func unknownProfileError(cfg *Config, name string) error {
	names := make([]string, 0, len(cfg.Profiles))
	for n := range cfg.Profiles {
		names = append(names, n)
	}

	sort.Strings(names)

	if suggestion := closestMatch(name, names); suggestion != "" {
		return fmt.Errorf("profile %q not found in config; did you mean %q?", name, suggestion)
	}

	return fmt.Errorf("profile %q not found in config", name)
}

// overrideString replaces *dst when value is non-empty.
func overrideString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
