package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// Read-only; Store and Delete are unsupported.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from TELEGRAM_API_ID / TELEGRAM_API_HASH
// (falling back to the short API_ID / API_HASH names).
func (e *EnvironmentStore) Retrieve(name string) (*Credentials, error) {
	apiID := envFirst("TELEGRAM_API_ID", "API_ID")
	apiHash := envFirst("TELEGRAM_API_HASH", "API_HASH")
	if apiID == "" || apiHash == "" {
		return nil, ErrCredentialsNotFound
	}

	if name == "" {
		name = "default"
	}
	return &Credentials{
		Name:         name,
		APIID:        apiID,
		APIHash:      apiHash,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	return envFirst("TELEGRAM_API_ID", "API_ID") != "" &&
		envFirst("TELEGRAM_API_HASH", "API_HASH") != ""
}

func envFirst(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
