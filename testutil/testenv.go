// Package testutil provides shared test environment helpers for live
// integration tests. It depends only on stdlib so that any package's tests
// can use it.
package testutil

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables describing a live Silver Tree deployment.
const (
	EnvTestAuthURL      = "STC_TEST_AUTH_URL"
	EnvTestBaseURL      = "STC_TEST_BASE_URL"
	EnvTestUsername     = "STC_TEST_USERNAME"
	EnvTestPassword     = "STC_TEST_PASSWORD"
	EnvTestDatabase     = "STC_TEST_DATABASE"
	EnvTestAllowedHosts = "STC_TEST_ALLOWED_HOSTS"
)

// LiveTarget is the deployment an integration test runs against.
type LiveTarget struct {
	AuthURL  string
	BaseURL  string
	Username string
	Password string
	Database string
}

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, "\"'")

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ReadLiveTarget returns the live deployment from the environment, or ok=false
// when any required variable is missing so callers can skip.
func ReadLiveTarget() (LiveTarget, bool) {
	target := LiveTarget{
		AuthURL:  os.Getenv(EnvTestAuthURL),
		BaseURL:  os.Getenv(EnvTestBaseURL),
		Username: os.Getenv(EnvTestUsername),
		Password: os.Getenv(EnvTestPassword),
		Database: os.Getenv(EnvTestDatabase),
	}

	ok := target.AuthURL != "" && target.BaseURL != "" &&
		target.Username != "" && target.Password != "" && target.Database != ""

	return target, ok
}

// ValidateAllowlist crashes the process unless both service hosts appear in
// STC_TEST_ALLOWED_HOSTS. Live tests create and drop collections, so they
// must never run against an unlisted deployment.
func ValidateAllowlist(target LiveTarget) {
	allowlist := os.Getenv(EnvTestAllowedHosts)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvTestAllowedHosts)
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		fmt.Fprintf(os.Stderr, "Example: %s=localhost:8000,localhost:8001\n", EnvTestAllowedHosts)
		os.Exit(1)
	}

	allowed := make(map[string]bool)
	for _, h := range strings.Split(allowlist, ",") {
		allowed[strings.TrimSpace(h)] = true
	}

	for _, raw := range []string{target.AuthURL, target.BaseURL} {
		u, err := url.Parse(raw)
		if err != nil || !allowed[u.Host] {
			fmt.Fprintf(os.Stderr, "FATAL: %q is not in %s=%q\n", raw, EnvTestAllowedHosts, allowlist)
			os.Exit(1)
		}
	}
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
