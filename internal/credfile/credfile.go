// Package credfile reads and writes the local credential file holding the
// access/refresh token pair between CLI invocations. The on-disk format is a
// flat oauth2.Token JSON object, so a plain {"access_token", "refresh_token"}
// file is accepted as-is.
package credfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/oauth2"
)

// FilePerms restricts credential files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the credential directory.
const DirPerms = 0o700

// lockSuffix names the advisory lock file kept next to the credential file.
// Concurrent invocations refreshing at the same time serialize on it.
const lockSuffix = ".lock"

// Load reads a saved credential file. Returns (nil, nil) if the file does
// not exist. A file with neither token is rejected.
func Load(path string) (*oauth2.Token, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	lock := flock.New(path + lockSuffix)
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("credfile: locking %s: %w", path, err)
	}
	defer lock.Unlock() //nolint:errcheck // releasing a shared lock on read

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // removed between stat and read
	}

	if err != nil {
		return nil, fmt.Errorf("credfile: reading %s: %w", path, err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("credfile: decoding %s: %w", path, err)
	}

	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("credfile: %s has empty credentials (login required)", path)
	}

	return &tok, nil
}

// Save writes a credential file atomically (write-to-temp + rename) with
// 0600 permissions while holding the exclusive lock. Never logs token values.
func Save(path string, tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("credfile: refusing to save nil token")
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("credfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("credfile: creating directory %s: %w", dir, mkErr)
	}

	lock := flock.New(path + lockSuffix)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("credfile: locking %s: %w", path, err)
	}
	defer lock.Unlock() //nolint:errcheck // lock file is advisory

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("credfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("credfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the credential file and its lock file. Returns false if
// there was no credential file to remove.
func Remove(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("credfile: removing %s: %w", path, err)
	}

	if lockErr := os.Remove(path + lockSuffix); lockErr != nil && !errors.Is(lockErr, fs.ErrNotExist) {
		return true, fmt.Errorf("credfile: removing lock file: %w", lockErr)
	}

	return true, nil
}
