package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckUnknownKeys_ProfileKeySuggestion(t *testing.T) {
	path := writeTestConfig(t, `
[profile.work]
usrname = "alice"
`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown key "usrname" in profile "work"`)
	assert.Contains(t, err.Error(), `did you mean "username"`)
}

func TestCheckUnknownKeys_AllReported(t *testing.T) {
	path := writeTestConfig(t, `
log_levl = "debug"
completely_unrelated_setting = 1
`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "log_level"`)
	assert.Contains(t, err.Error(), `unknown config key "completely_unrelated_setting"`)
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "base_url", closestMatch("baseurl", knownGlobalKeysList))
	assert.Equal(t, "output", closestMatch("outpt", knownGlobalKeysList))
	assert.Empty(t, closestMatch("zzzzzzzzzz", knownGlobalKeysList))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("abc", ""))
	assert.Equal(t, 1, levenshtein("color", "colour"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
