package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"
)

// maxRequestTimeout caps request_timeout; a larger value is almost always a
// unit mistake ("30m" for "30s").
const maxRequestTimeout = 10 * time.Minute

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.ServerConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateOutput(&cfg.OutputConfig)...)
	errs = append(errs, validateProfiles(cfg.Profiles)...)

	return errors.Join(errs...)
}

// ValidateResolved checks a fully resolved profile. Unlike Validate(), which
// checks raw config file values, this runs after environment and CLI
// overrides, which bypass file validation.
func ValidateResolved(rp *ResolvedProfile) error {
	var errs []error

	errs = append(errs, validateServer(&rp.ServerConfig)...)
	errs = append(errs, validateNetwork(&rp.NetworkConfig)...)
	errs = append(errs, validateLogging(&rp.LoggingConfig)...)
	errs = append(errs, validateOutput(&rp.OutputConfig)...)

	if rp.CredentialsFile == "" {
		errs = append(errs, errors.New("credentials_file: could not determine a default path; set it explicitly"))
	}

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	errs = append(errs, validateServiceURL("auth_url", s.AuthURL)...)
	errs = append(errs, validateServiceURL("base_url", s.BaseURL)...)

	return errs
}

// validateServiceURL requires an absolute http(s) URL without query or
// fragment, since operation paths are appended to it.
func validateServiceURL(field, value string) []error {
	if value == "" {
		return []error{fmt.Errorf("%s: must not be empty", field)}
	}

	u, err := url.Parse(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid URL %q: %w", field, value, err)}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("%s: scheme must be http or https, got %q", field, value)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("%s: missing host in %q", field, value)}
	}

	if u.RawQuery != "" || u.Fragment != "" {
		return []error{fmt.Errorf("%s: must not contain a query or fragment, got %q", field, value)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	d, err := time.ParseDuration(n.RequestTimeout)
	if err != nil {
		return []error{fmt.Errorf("request_timeout: invalid duration %q: %w", n.RequestTimeout, err)}
	}

	if d < 0 || d > maxRequestTimeout {
		return []error{fmt.Errorf("request_timeout: must be between 0 and %s, got %s", maxRequestTimeout, d)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be text or json; got %q", format)}
	}

	return nil
}

var validOutputs = map[string]bool{
	OutputJSON:  true,
	OutputYAML:  true,
	OutputTable: true,
}

var validColors = map[string]bool{
	ColorAuto:   true,
	ColorAlways: true,
	ColorNever:  true,
}

func validateOutput(o *OutputConfig) []error {
	var errs []error

	if !validOutputs[o.Output] {
		errs = append(errs, fmt.Errorf("output: must be one of json, yaml, table; got %q", o.Output))
	}

	if !validColors[o.Color] {
		errs = append(errs, fmt.Errorf("color: must be one of auto, always, never; got %q", o.Color))
	}

	return errs
}

func validateProfiles(profiles map[string]Profile) []error {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}

	// Sorted for a stable error report.
	sort.Strings(names)

	var errs []error

	for _, name := range names {
		p := profiles[name]

		if p.AuthURL != "" {
			errs = append(errs, prefixErrors("profile "+name, validateServiceURL("auth_url", p.AuthURL))...)
		}

		if p.BaseURL != "" {
			errs = append(errs, prefixErrors("profile "+name, validateServiceURL("base_url", p.BaseURL))...)
		}
	}

	return errs
}

func prefixErrors(prefix string, errs []error) []error {
	out := make([]error, len(errs))
	for i, err := range errs {
		out[i] = fmt.Errorf("%s: %w", prefix, err)
	}

	return out
}
