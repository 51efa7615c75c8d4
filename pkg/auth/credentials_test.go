package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	// Use mock manager for reliable testing
	manager, mockStore := NewMockManager()

	// Test storing a session bundle
	creds := &Credentials{
		Name:         ProfileInstagram,
		SessionID:    "test_session_id_12345",
		CSRFToken:    "test_csrf_token_67890",
		UserAgent:    "TestAgent/1.0",
		LastModified: time.Now(),
	}

	err := manager.Store(creds)
	if err != nil {
		t.Errorf("Failed to store credentials: %v", err)
	}

	// Test retrieving credentials
	retrieved, err := manager.Retrieve(ProfileInstagram)
	if err != nil {
		t.Errorf("Failed to retrieve credentials: %v", err)
	}

	if retrieved.Name != creds.Name {
		t.Errorf("Name mismatch: got %s, want %s", retrieved.Name, creds.Name)
	}
	if retrieved.SessionID != creds.SessionID {
		t.Errorf("SessionID mismatch: got %s, want %s", retrieved.SessionID, creds.SessionID)
	}
	if retrieved.CSRFToken != creds.CSRFToken {
		t.Errorf("CSRFToken mismatch: got %s, want %s", retrieved.CSRFToken, creds.CSRFToken)
	}
	if !retrieved.HasSession() {
		t.Error("Expected retrieved bundle to carry a session")
	}

	// Test listing
	bundles, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list credentials: %v", err)
	}
	if len(bundles) == 0 {
		t.Error("Expected at least one bundle in list")
	}

	// Test sanitization
	sanitized := Sanitize(creds)
	if sanitized.SessionID == creds.SessionID {
		t.Error("SessionID should be masked")
	}
	if sanitized.CSRFToken == creds.CSRFToken {
		t.Error("CSRFToken should be masked")
	}
	if sanitized.Name != creds.Name {
		t.Error("Name should not be masked")
	}

	// Test deletion
	err = manager.Delete(ProfileInstagram)
	if err != nil {
		t.Errorf("Failed to delete credentials: %v", err)
	}

	// Verify deletion
	_, err = manager.Retrieve(ProfileInstagram)
	if err == nil {
		t.Error("Expected error retrieving deleted credentials")
	}

	// Verify mock store state
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 bundles after deletion, got %d", mockStore.Count())
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	// Missing name
	err := manager.Store(&Credentials{SessionID: "x", CSRFToken: "y"})
	if err == nil {
		t.Error("Expected error for missing name")
	}

	// Neither a session nor an API key
	err = manager.Store(&Credentials{Name: "empty"})
	if err == nil {
		t.Error("Expected error for bundle without secrets")
	}

	// API key alone is enough
	err = manager.Store(&Credentials{Name: ProfileGroq, APIKey: "gsk_test_key_value"})
	if err != nil {
		t.Errorf("Expected API key bundle to store, got %v", err)
	}
}

func TestRetrieveAPIKey(t *testing.T) {
	manager, _ := NewMockManager()

	err := manager.Store(&Credentials{Name: ProfileGroq, APIKey: "gsk_test_key_value"})
	if err != nil {
		t.Fatalf("Failed to store API key: %v", err)
	}

	key, err := manager.RetrieveAPIKey(ProfileGroq)
	if err != nil {
		t.Fatalf("Failed to retrieve API key: %v", err)
	}
	if key != "gsk_test_key_value" {
		t.Errorf("API key mismatch: got %s", key)
	}

	// A session bundle without an API key is not an API key source.
	_ = manager.Store(&Credentials{Name: ProfileInstagram, SessionID: "s", CSRFToken: "c"})
	if _, err := manager.RetrieveAPIKey(ProfileInstagram); err == nil {
		t.Error("Expected error retrieving API key from session bundle")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "test_creds.enc")

	// Set test passphrase
	os.Setenv(passphraseEnvVar, "test_passphrase_123")
	defer os.Unsetenv(passphraseEnvVar)

	store, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	creds := &Credentials{
		Name:      ProfileInstagram,
		SessionID: "encrypted_session",
		CSRFToken: "encrypted_csrf",
	}

	// Store
	err = store.Store(creds)
	if err != nil {
		t.Errorf("Failed to store in encrypted file: %v", err)
	}

	// Retrieve
	retrieved, err := store.Retrieve(ProfileInstagram)
	if err != nil {
		t.Errorf("Failed to retrieve from encrypted file: %v", err)
	}

	if retrieved.SessionID != creds.SessionID {
		t.Errorf("SessionID mismatch after encryption/decryption")
	}

	// Verify file is actually encrypted
	fileContent, err := os.ReadFile(tempFile)
	if err != nil {
		t.Fatal(err)
	}

	// File should not contain plaintext credentials
	if contains(fileContent, []byte("encrypted_session")) {
		t.Error("File contains plaintext session ID")
	}
	if contains(fileContent, []byte("encrypted_csrf")) {
		t.Error("File contains plaintext CSRF token")
	}
}

func TestEnvironmentStore(t *testing.T) {
	os.Setenv("REELGRAB_SESSION_ID", "env_session")
	os.Setenv("REELGRAB_CSRF_TOKEN", "env_csrf")
	defer os.Unsetenv("REELGRAB_SESSION_ID")
	defer os.Unsetenv("REELGRAB_CSRF_TOKEN")

	store := NewEnvironmentStore()

	// Test retrieve
	creds, err := store.Retrieve(ProfileInstagram)
	if err != nil {
		t.Errorf("Failed to retrieve from environment: %v", err)
	}

	if creds.SessionID != "env_session" {
		t.Errorf("SessionID mismatch: got %s, want env_session", creds.SessionID)
	}
	if creds.CSRFToken != "env_csrf" {
		t.Errorf("CSRFToken mismatch: got %s, want env_csrf", creds.CSRFToken)
	}

	// Test that store is not supported
	err = store.Store(&Credentials{})
	if err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestEnvironmentStoreGroqKey(t *testing.T) {
	os.Setenv("GROQ_API_KEY", "gsk_from_env")
	defer os.Unsetenv("GROQ_API_KEY")

	store := NewEnvironmentStore()

	creds, err := store.Retrieve(ProfileGroq)
	if err != nil {
		t.Fatalf("Failed to retrieve groq key from environment: %v", err)
	}
	if creds.APIKey != "gsk_from_env" {
		t.Errorf("APIKey mismatch: got %s", creds.APIKey)
	}

	// The prefixed variable wins over the plain one.
	os.Setenv("REELGRAB_GROQ_API_KEY", "gsk_prefixed")
	defer os.Unsetenv("REELGRAB_GROQ_API_KEY")

	creds, err = store.Retrieve(ProfileGroq)
	if err != nil {
		t.Fatal(err)
	}
	if creds.APIKey != "gsk_prefixed" {
		t.Errorf("Expected prefixed key to win, got %s", creds.APIKey)
	}
}

func TestRealManagerWithEncryptedStore(t *testing.T) {
	tempDir := t.TempDir()

	os.Setenv(passphraseEnvVar, "test_passphrase_real_manager")
	defer os.Unsetenv(passphraseEnvVar)

	// Create manager with only encrypted file store (most reliable for testing)
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(tempDir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	manager := NewMockManagerWithStores(encryptedStore)

	creds := &Credentials{
		Name:         ProfileInstagram,
		SessionID:    "real_session_id",
		CSRFToken:    "real_csrf_token",
		UserAgent:    "RealAgent/1.0",
		LastModified: time.Now(),
	}

	err = manager.Store(creds)
	if err != nil {
		t.Fatalf("Failed to store credentials: %v", err)
	}

	bundles, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list credentials: %v", err)
	}
	if len(bundles) != 1 {
		t.Errorf("Expected 1 bundle in list, got %d", len(bundles))
	}

	retrieved, err := manager.Retrieve(ProfileInstagram)
	if err != nil {
		t.Fatalf("Failed to retrieve credentials: %v", err)
	}

	if retrieved.Name != creds.Name {
		t.Errorf("Name mismatch: got %s, want %s", retrieved.Name, creds.Name)
	}
	if retrieved.SessionID != creds.SessionID {
		t.Errorf("SessionID mismatch: got %s, want %s", retrieved.SessionID, creds.SessionID)
	}
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	// Test empty store
	bundles, err := store.List()
	if err != nil {
		t.Errorf("Failed to list empty store: %v", err)
	}
	if len(bundles) != 0 {
		t.Errorf("Expected 0 bundles, got %d", len(bundles))
	}

	// Test storing and retrieving
	creds := &Credentials{
		Name:      "mockprofile",
		SessionID: "mock_session",
		CSRFToken: "mock_csrf",
	}

	err = store.Store(creds)
	if err != nil {
		t.Errorf("Failed to store credentials: %v", err)
	}

	// Verify count
	if store.Count() != 1 {
		t.Errorf("Expected 1 bundle, got %d", store.Count())
	}

	// Test exists
	if !store.Exists("mockprofile") {
		t.Error("Credentials should exist")
	}

	// Test error injection
	store.ListError = fmt.Errorf("injected error")
	_, err = store.List()
	if err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}

func contains(data []byte, substr []byte) bool {
	for i := 0; i <= len(data)-len(substr); i++ {
		if string(data[i:i+len(substr)]) == string(substr) {
			return true
		}
	}
	return false
}
