// Package auth stores Telegram API credentials across a chain of backends:
// system keychain first, encrypted file as fallback, environment variables
// read-only.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Credentials is one named Telegram API credential set.
type Credentials struct {
	Name         string    `json:"name"`
	APIID        string    `json:"api_id"`
	APIHash      string    `json:"api_hash"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves a credential set
	Store(creds *Credentials) error

	// Retrieve gets the credential set with the given name
	Retrieve(name string) (*Credentials, error)

	// Delete removes the credential set with the given name
	Delete(name string) error

	// Exists checks if a credential set exists
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager with the available backends in
// preference order: keyring, encrypted file, environment.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves to the first writable backend.
func (m *Manager) Store(creds *Credentials) error {
	if creds == nil || creds.Name == "" {
		return ErrInvalidCredentials
	}
	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(creds); err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				continue
			}
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return ErrStoreUnavailable
}

// Retrieve returns the first backend's credentials for name.
func (m *Manager) Retrieve(name string) (*Credentials, error) {
	for _, store := range m.stores {
		creds, err := store.Retrieve(name)
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, ErrCredentialsNotFound) {
			return nil, err
		}
	}
	return nil, ErrCredentialsNotFound
}

// Delete removes name from every backend that has it.
func (m *Manager) Delete(name string) error {
	found := false
	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			found = true
		}
	}
	if !found {
		return ErrCredentialsNotFound
	}
	return nil
}

// Exists reports whether any backend has name.
func (m *Manager) Exists(name string) bool {
	for _, store := range m.stores {
		if store.Exists(name) {
			return true
		}
	}
	return false
}

// ConfigDir returns the tgranger configuration directory, creating it when
// missing.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("no config directory available: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "tgranger")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
