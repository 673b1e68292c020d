package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command, giving
// users visibility into the effective values after all four override layers
// (defaults -> file -> env -> CLI) have been applied. The password is
// reported only as set or unset.
func RenderEffective(rp *ResolvedProfile, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration for profile %q\n", rp.Name)

	if rp.ConfigPath != "" {
		ew.printf("# Config file: %s\n", rp.ConfigPath)
	}

	ew.printf("\n")

	renderProfileSection(ew, rp)
	renderServerSection(ew, &rp.ServerConfig)
	renderNetworkSection(ew, &rp.NetworkConfig)
	renderLoggingSection(ew, &rp.LoggingConfig)
	renderOutputSection(ew, &rp.OutputConfig)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderProfileSection(ew *errWriter, rp *ResolvedProfile) {
	ew.printf("[profile]\n")
	ew.printf("  name     = %q\n", rp.Name)

	if rp.Username != "" {
		ew.printf("  username = %q\n", rp.Username)
	}

	ew.printf("  password = %s\n", setOrUnset(rp.Password))
	ew.printf("\n")
}

func renderServerSection(ew *errWriter, s *ServerConfig) {
	ew.printf("[server]\n")
	ew.printf("  auth_url         = %q\n", s.AuthURL)
	ew.printf("  base_url         = %q\n", s.BaseURL)
	ew.printf("  credentials_file = %q\n", s.CredentialsFile)
	ew.printf("\n")
}

func renderNetworkSection(ew *errWriter, n *NetworkConfig) {
	ew.printf("[network]\n")
	ew.printf("  request_timeout = %q\n", n.RequestTimeout)

	if n.UserAgent != "" {
		ew.printf("  user_agent      = %q\n", n.UserAgent)
	}

	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", l.LogLevel)
	ew.printf("  log_format = %q\n", l.LogFormat)
	ew.printf("\n")
}

func renderOutputSection(ew *errWriter, o *OutputConfig) {
	ew.printf("[output]\n")
	ew.printf("  output = %q\n", o.Output)
	ew.printf("  color  = %q\n", o.Color)
}

func setOrUnset(v string) string {
	if v == "" {
		return "(unset)"
	}

	return "(set)"
}
