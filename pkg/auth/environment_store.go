package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It only serves the well-known profiles and cannot persist anything.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(name string) (*Credentials, error) {
	switch name {
	case ProfileInstagram, "":
		sessionID := os.Getenv("REELGRAB_SESSION_ID")
		csrfToken := os.Getenv("REELGRAB_CSRF_TOKEN")
		if sessionID == "" || csrfToken == "" {
			return nil, ErrCredentialsNotFound
		}
		return &Credentials{
			Name:         ProfileInstagram,
			SessionID:    sessionID,
			CSRFToken:    csrfToken,
			UserAgent:    os.Getenv("REELGRAB_USER_AGENT"),
			LastModified: time.Now(),
		}, nil

	case ProfileGroq:
		apiKey := os.Getenv("REELGRAB_GROQ_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("GROQ_API_KEY")
		}
		if apiKey == "" {
			return nil, ErrCredentialsNotFound
		}
		return &Credentials{
			Name:         ProfileGroq,
			APIKey:       apiKey,
			LastModified: time.Now(),
		}, nil
	}

	return nil, ErrCredentialsNotFound
}

// List returns the profiles currently present in the environment
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	var result []*Credentials
	for _, name := range []string{ProfileInstagram, ProfileGroq} {
		if creds, err := e.Retrieve(name); err == nil {
			result = append(result, creds)
		}
	}
	return result, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}
