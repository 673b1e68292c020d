// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for stc. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags) with
// named profiles whose fields override the global ones.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Global settings are flat top-level keys; named profiles live under
// [profile.<name>] tables.
type Config struct {
	Profiles map[string]Profile `toml:"profile"`

	ServerConfig
	NetworkConfig
	LoggingConfig
	OutputConfig
}

// ServerConfig locates the two Silver Tree services and the local
// credential file.
type ServerConfig struct {
	AuthURL         string `toml:"auth_url"`
	BaseURL         string `toml:"base_url"`
	CredentialsFile string `toml:"credentials_file"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	RequestTimeout string `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// LoggingConfig controls diagnostic log output on stderr.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// OutputConfig controls how command results are rendered on stdout.
type OutputConfig struct {
	Output string `toml:"output"`
	Color  string `toml:"color"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath      string  // --config flag (empty = use default)
	Profile         string  // --profile flag (empty = use default)
	AuthURL         *string // --auth-url
	BaseURL         *string // --base-url
	CredentialsFile *string // --credentials
	RequestTimeout  *string // --timeout
	Output          *string // --output
	NoColor         bool    // --no-color
}
