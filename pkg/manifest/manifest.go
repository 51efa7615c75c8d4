package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"reelgrab/pkg/logger"
	"reelgrab/pkg/models"
)

const manifestVersion = 1

// Manifest is the persisted record of one orchestrator run. It lives outside
// the workspace so the run directory itself carries nothing but artifacts.
type Manifest struct {
	RunID        string              `json:"run_id"`
	WorkspaceDir string              `json:"workspace_dir"`
	Options      models.Options      `json:"options"`
	Requested    int                 `json:"requested"`
	Completed    int                 `json:"completed"`
	Failed       int                 `json:"failed"`
	StartedAt    time.Time           `json:"started_at"`
	Duration     time.Duration       `json:"duration"`
	Items        []*models.MediaItem `json:"items"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Version      int                 `json:"version"`
}

// FromSummary builds the manifest for a finished (or cancelled) run.
func FromSummary(runID string, opts models.Options, summary *models.RunSummary) *Manifest {
	return &Manifest{
		RunID:        runID,
		WorkspaceDir: summary.WorkspaceDir,
		Options:      opts,
		Requested:    summary.Requested,
		Completed:    summary.Completed,
		Failed:       summary.Failed,
		StartedAt:    summary.StartedAt,
		Duration:     summary.Duration,
		Items:        summary.Items,
		Version:      manifestVersion,
	}
}

// Manager persists run manifests under the user data directory
type Manager struct {
	runsDir string
	logger  logger.Logger
}

// NewManager creates a manifest manager rooted at the platform data directory
func NewManager(log logger.Logger) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	runsDir := filepath.Join(dataDir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}

	return &Manager{
		runsDir: runsDir,
		logger:  log,
	}, nil
}

// Dir returns the directory manifests are stored in.
func (m *Manager) Dir() string {
	return m.runsDir
}

func (m *Manager) path(runID string) string {
	return filepath.Join(m.runsDir, runID+".json")
}

// Save writes the manifest to disk atomically
func (m *Manager) Save(manifest *Manifest) error {
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now()
	}
	manifest.UpdatedAt = time.Now()

	path := m.path(manifest.RunID)
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(manifest); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync manifest file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close manifest file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}

	m.logger.DebugWithFields("Manifest saved", map[string]interface{}{
		"run_id":    manifest.RunID,
		"completed": manifest.Completed,
		"failed":    manifest.Failed,
	})

	return nil
}

// Load reads one run's manifest. A missing manifest is not an error and
// returns nil.
func (m *Manager) Load(runID string) (*Manifest, error) {
	file, err := os.Open(m.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open manifest file: %w", err)
	}
	defer file.Close()

	var manifest Manifest
	if err := json.NewDecoder(file).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &manifest, nil
}

// List returns every stored manifest, newest first. Corrupt entries are
// skipped with a warning rather than failing the listing.
func (m *Manager) List() ([]*Manifest, error) {
	entries, err := os.ReadDir(m.runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var manifests []*Manifest
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		manifest, err := m.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			m.logger.WarnWithFields("Skipping unreadable manifest", map[string]interface{}{
				"file":  name,
				"error": err.Error(),
			})
			continue
		}
		if manifest != nil {
			manifests = append(manifests, manifest)
		}
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].UpdatedAt.After(manifests[j].UpdatedAt)
	})
	return manifests, nil
}

// Delete removes a run's manifest file
func (m *Manager) Delete(runID string) error {
	if err := os.Remove(m.path(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	return nil
}

// Exists checks whether a manifest is stored for the run
func (m *Manager) Exists(runID string) bool {
	_, err := os.Stat(m.path(runID))
	return err == nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "reelgrab")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "reelgrab")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "reelgrab")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "reelgrab")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
