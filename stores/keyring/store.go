// Package keyring provides a credential and session store backed by the
// OS keychain, with an encrypted file fallback for headless systems.
package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	kr "github.com/99designs/keyring"

	"github.com/bsglabs/bankclient"
)

const (
	credentialKey = "credential"
	sessionKey    = "session"
)

// Store persists blobs in the platform keyring.
type Store struct {
	ring   kr.Keyring
	logger *slog.Logger
}

// NewStore opens the keyring for the given service name. fileDir backs
// the file fallback used when no native keychain is available.
func NewStore(service string, fileDir string) (*Store, error) {
	ring, err := kr.Open(kr.Config{
		ServiceName: service,
		AllowedBackends: []kr.BackendType{
			kr.SecretServiceBackend,
			kr.KeychainBackend,
			kr.WinCredBackend,
			kr.FileBackend,
		},
		FileDir:          fileDir,
		FilePasswordFunc: kr.FixedStringPrompt("Enter a password to encrypt your credentials"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &Store{ring: ring, logger: slog.Default()}, nil
}

// ReadCredential returns the stored credential. A missing entry or
// malformed payload yields (nil, nil).
func (s *Store) ReadCredential() (*bankclient.Credential, error) {
	item, err := s.ring.Get(credentialKey)
	if err != nil {
		if errors.Is(err, kr.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var cred bankclient.Credential
	if err := json.Unmarshal(item.Data, &cred); err != nil {
		s.logger.Warn("discarding corrupt keyring credential", "err", err)
		return nil, nil
	}
	return &cred, nil
}

func (s *Store) WriteCredential(cred *bankclient.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to serialize credential: %w", err)
	}
	return s.ring.Set(kr.Item{
		Key:   credentialKey,
		Data:  data,
		Label: "BSG demo credential",
	})
}

func (s *Store) ClearCredential() error {
	return s.removeKey(credentialKey)
}

func (s *Store) ReadSession() ([]byte, error) {
	item, err := s.ring.Get(sessionKey)
	if err != nil {
		if errors.Is(err, kr.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	return item.Data, nil
}

func (s *Store) WriteSession(data []byte) error {
	return s.ring.Set(kr.Item{
		Key:   sessionKey,
		Data:  data,
		Label: "BSG demo session",
	})
}

func (s *Store) ClearSession() error {
	return s.removeKey(sessionKey)
}

func (s *Store) removeKey(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, kr.ErrKeyNotFound) {
		return err
	}
	return nil
}
