// Package fs provides a file system-based credential and session store
// for bankclient.
package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bsglabs/bankclient"
)

const (
	credentialFile = "credential.json"
	sessionFile    = "session.json"
)

// Store keeps the credential and session blobs as JSON files under a
// config directory, one file per key. Writes go through a temp file and
// rename, so a read never observes a half-written value.
type Store struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
}

// NewStore creates an FS-based store. If dir is empty, defaults to
// ~/.config/<appName>.
func NewStore(dir string, appName string) (*Store, error) {
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "bankclient"
		}
		dir = filepath.Join(configDir, appName)
	}

	return &Store{dir: dir, logger: slog.Default()}, nil
}

// ReadCredential returns the stored credential. A missing file or
// malformed JSON yields (nil, nil): corrupt state reads as logged out.
func (s *Store) ReadCredential() (*bankclient.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, credentialFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var cred bankclient.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		s.logger.Warn("discarding corrupt credential file", "err", err)
		return nil, nil
	}
	return &cred, nil
}

// WriteCredential replaces the stored credential atomically.
func (s *Store) WriteCredential(cred *bankclient.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(credentialFile, data)
}

// ClearCredential removes the stored credential. Idempotent.
func (s *Store) ClearCredential() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(credentialFile)
}

// ReadSession returns the raw session blob, or (nil, nil) if absent.
func (s *Store) ReadSession() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// WriteSession replaces the stored session blob atomically.
func (s *Store) WriteSession(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(sessionFile, data)
}

// ClearSession removes the stored session blob. Idempotent.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(sessionFile)
}

// Dir returns the directory backing this store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) writeFile(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (s *Store) remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
