package config

// Default values for configuration options. These represent "layer 0" of the
// four-layer override chain and match a local development deployment of the
// two services.
const (
	defaultAuthURL        = "http://localhost:8001"
	defaultBaseURL        = "http://localhost:8000"
	defaultRequestTimeout = "30s"
	defaultLogLevel       = "warn"
	defaultLogFormat      = "text"
	defaultOutput         = OutputJSON
	defaultColor          = ColorAuto
)

// Output formats for command results.
const (
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputTable = "table"
)

// Color modes for status lines.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
// CredentialsFile stays empty: its default depends on the profile name.
func DefaultConfig() *Config {
	return &Config{
		ServerConfig:  defaultServerConfig(),
		NetworkConfig: defaultNetworkConfig(),
		LoggingConfig: defaultLoggingConfig(),
		OutputConfig:  defaultOutputConfig(),
		Profiles:      make(map[string]Profile),
	}
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		AuthURL: defaultAuthURL,
		BaseURL: defaultBaseURL,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		RequestTimeout: defaultRequestTimeout,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

func defaultOutputConfig() OutputConfig {
	return OutputConfig{
		Output: defaultOutput,
		Color:  defaultColor,
	}
}
