package bankclient

import (
	"sync"
)

// memStore is a simple in-memory credential + session store for tests.
type memStore struct {
	mu      sync.Mutex
	cred    *Credential
	session []byte

	readErr  error
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) ReadCredential() (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.cred == nil {
		return nil, nil
	}
	c := *m.cred
	return &c, nil
}

func (m *memStore) WriteCredential(cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	c := *cred
	m.cred = &c
	return nil
}

func (m *memStore) ClearCredential() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	return nil
}

func (m *memStore) ReadSession() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *memStore) WriteSession(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = append([]byte(nil), data...)
	return nil
}

func (m *memStore) ClearSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *memStore) credential() *Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred
}

func (m *memStore) setCredential(cred *Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = cred
}
