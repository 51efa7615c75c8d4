package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Well-known profile names. The Instagram profile carries the session
// cookies the native engine needs; the Groq profile carries the API key for
// remote transcription.
const (
	ProfileInstagram = "instagram"
	ProfileGroq      = "groq"
)

// Credentials is a named secret bundle. Instagram profiles populate the
// session fields, transcription profiles populate APIKey; both can coexist
// under different names.
type Credentials struct {
	Name         string    `json:"name"`
	SessionID    string    `json:"session_id,omitempty"`
	CSRFToken    string    `json:"csrf_token,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	APIKey       string    `json:"api_key,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// HasSession reports whether the bundle carries a usable Instagram session.
func (c *Credentials) HasSession() bool {
	return c.SessionID != "" && c.CSRFToken != ""
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves a credential bundle
	Store(creds *Credentials) error

	// Retrieve gets the bundle stored under a name
	Retrieve(name string) (*Credentials, error)

	// List returns all stored bundles
	List() ([]*Credentials, error)

	// Delete removes the bundle stored under a name
	Delete(name string) error

	// Exists checks if a bundle exists for a name
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a new credential manager with appropriate storage backends
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	// Always add encrypted file store as fallback
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Add environment store as last resort
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves credentials using the first available store
func (m *Manager) Store(creds *Credentials) error {
	if creds.Name == "" {
		return errors.New("credential name is required")
	}
	if !creds.HasSession() && creds.APIKey == "" {
		return errors.New("either a session (id + csrf token) or an API key is required")
	}

	creds.LastModified = time.Now()

	// Try each store in order
	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(creds); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(name string) (*Credentials, error) {
	for _, store := range m.stores {
		if creds, err := store.Retrieve(name); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("credentials not found: %s", name)
}

// RetrieveSession gets the Instagram session bundle, falling back to the
// environment when nothing was stored explicitly.
func (m *Manager) RetrieveSession() (*Credentials, error) {
	creds, err := m.Retrieve(ProfileInstagram)
	if err != nil {
		return nil, err
	}
	if !creds.HasSession() {
		return nil, ErrCredentialsNotFound
	}
	return creds, nil
}

// RetrieveAPIKey gets the API key stored under the given profile name.
func (m *Manager) RetrieveAPIKey(name string) (string, error) {
	creds, err := m.Retrieve(name)
	if err != nil {
		return "", err
	}
	if creds.APIKey == "" {
		return "", ErrCredentialsNotFound
	}
	return creds.APIKey, nil
}

// List returns all stored credential bundles from all stores
func (m *Manager) List() ([]*Credentials, error) {
	credMap := make(map[string]*Credentials)

	for _, store := range m.stores {
		bundles, err := store.List()
		if err != nil {
			continue
		}
		for _, creds := range bundles {
			// Use the most recently modified version
			if existing, ok := credMap[creds.Name]; !ok || creds.LastModified.After(existing.LastModified) {
				credMap[creds.Name] = creds
			}
		}
	}

	var result []*Credentials
	for _, creds := range credMap {
		result = append(result, creds)
	}

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credentials not found: %s", name)
	}

	return nil
}

// DeleteAll removes all stored credentials
func (m *Manager) DeleteAll() error {
	bundles, err := m.List()
	if err != nil {
		return err
	}

	for _, creds := range bundles {
		_ = m.Delete(creds.Name) // Ignore individual errors
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "reelgrab")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "reelgrab")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "reelgrab")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "reelgrab")
		}
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize creates a copy of the credentials with sensitive data masked
func Sanitize(creds *Credentials) *Credentials {
	if creds == nil {
		return nil
	}

	return &Credentials{
		Name:         creds.Name,
		SessionID:    maskString(creds.SessionID),
		CSRFToken:    maskString(creds.CSRFToken),
		UserAgent:    creds.UserAgent,
		APIKey:       maskString(creds.APIKey),
		LastModified: creds.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
