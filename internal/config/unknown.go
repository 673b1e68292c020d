package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownGlobalKeys are the valid flat top-level keys in the config file.
// These correspond to fields in the embedded sub-config structs.
var knownGlobalKeys = map[string]bool{
	// Server settings
	"auth_url": true, "base_url": true, "credentials_file": true,
	// Network settings
	"request_timeout": true, "user_agent": true,
	// Logging settings
	"log_level": true, "log_format": true,
	// Output settings
	"output": true, "color": true,
	// Profile tables
	profileTableKey: true,
}

// profileTableKey is the top-level table holding named profiles.
const profileTableKey = "profile"

// knownGlobalKeysList is the sorted slice form of knownGlobalKeys for
// Levenshtein matching. Sorted for deterministic suggestions when two
// candidates have the same edit distance.
var knownGlobalKeysList = sortedKeys(knownGlobalKeys)

// knownProfileKeys are the valid keys inside a [profile.<name>] table.
var knownProfileKeys = map[string]bool{
	"auth_url": true, "base_url": true, "credentials_file": true, "username": true,
}

// knownProfileKeysList is the sorted slice form for Levenshtein matching.
var knownProfileKeysList = sortedKeys(knownProfileKeys)

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	for _, key := range undecoded {
		if key[0] == profileTableKey {
			if len(key) >= 3 { //nolint:mnd // profile.<name>.<key>
				errs = append(errs, buildProfileKeyError(key[1], key[2]))
			}

			continue
		}

		errs = append(errs, buildGlobalKeyError(key[0]))
	}

	return errors.Join(errs...)
}

// buildGlobalKeyError creates a descriptive error for an unknown top-level
// key, optionally suggesting the closest known key.
func buildGlobalKeyError(fieldName string) error {
	suggestion := closestMatch(fieldName, knownGlobalKeysList)
	if suggestion != "" {
		return fmt.Errorf("unknown config key %q, did you mean %q?", fieldName, suggestion)
	}

	return fmt.Errorf("unknown config key %q", fieldName)
}

// buildProfileKeyError reports an unknown key inside a profile table.
func buildProfileKeyError(profile, key string) error {
	suggestion := closestMatch(key, knownProfileKeysList)
	if suggestion != "" {
		return fmt.Errorf("unknown key %q in profile %q, did you mean %q?", key, profile, suggestion)
	}

	return fmt.Errorf("unknown key %q in profile %q", key, profile)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
