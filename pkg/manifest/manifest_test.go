package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelgrab/pkg/logger"
	"reelgrab/pkg/models"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	mgr, err := NewManager(logger.NewNopLogger())
	require.NoError(t, err)
	return mgr
}

func sampleSummary() *models.RunSummary {
	item := models.NewMediaItem("https://www.instagram.com/reel/ABC123/", 1)
	item.Status = models.StatusCompleted
	item.Title = "Reel 1"
	item.Artifacts[models.ArtifactVideo] = models.ArtifactProduced

	summary := &models.RunSummary{
		WorkspaceDir: "/downloads/session_20250101_120000",
		Requested:    1,
		StartedAt:    time.Now().Add(-time.Minute),
		Duration:     time.Minute,
	}
	summary.Add(item)
	return summary
}

func TestManifestSaveLoad(t *testing.T) {
	mgr := testManager(t)

	opts := models.DefaultOptions()
	opts.Transcript = true
	mf := FromSummary("run-1", opts.Normalized(), sampleSummary())

	require.NoError(t, mgr.Save(mf))
	assert.True(t, mgr.Exists("run-1"))
	assert.False(t, mf.CreatedAt.IsZero())
	assert.False(t, mf.UpdatedAt.IsZero())

	loaded, err := mgr.Load("run-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, manifestVersion, loaded.Version)
	assert.Equal(t, 1, loaded.Requested)
	assert.Equal(t, 1, loaded.Completed)
	assert.Equal(t, 0, loaded.Failed)
	assert.Equal(t, "/downloads/session_20250101_120000", loaded.WorkspaceDir)
	assert.True(t, loaded.Options.Transcript)
	assert.True(t, loaded.Options.Audio, "saved options are the normalized ones")

	require.Len(t, loaded.Items, 1)
	assert.Equal(t, models.StatusCompleted, loaded.Items[0].Status)
	assert.Equal(t, models.ArtifactProduced, loaded.Items[0].Artifacts[models.ArtifactVideo])
}

func TestManifestLoadMissing(t *testing.T) {
	mgr := testManager(t)

	loaded, err := mgr.Load("never-saved")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestManifestList(t *testing.T) {
	mgr := testManager(t)

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, mgr.Save(FromSummary(id, models.DefaultOptions(), sampleSummary())))
		time.Sleep(5 * time.Millisecond)
	}

	// A corrupt file must not break the listing.
	require.NoError(t, os.WriteFile(filepath.Join(mgr.Dir(), "broken.json"), []byte("not json"), 0o644))

	manifests, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, manifests, 3)

	assert.Equal(t, "run-c", manifests[0].RunID, "newest first")
	assert.Equal(t, "run-b", manifests[1].RunID)
	assert.Equal(t, "run-a", manifests[2].RunID)
}

func TestManifestDelete(t *testing.T) {
	mgr := testManager(t)

	require.NoError(t, mgr.Save(FromSummary("run-1", models.DefaultOptions(), sampleSummary())))
	require.True(t, mgr.Exists("run-1"))

	require.NoError(t, mgr.Delete("run-1"))
	assert.False(t, mgr.Exists("run-1"))

	// Deleting an absent manifest stays quiet.
	assert.NoError(t, mgr.Delete("run-1"))
}

func TestManifestSaveLeavesNoTempFiles(t *testing.T) {
	mgr := testManager(t)

	require.NoError(t, mgr.Save(FromSummary("run-1", models.DefaultOptions(), sampleSummary())))

	entries, err := os.ReadDir(mgr.Dir())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, filepath.Ext(entry.Name()) == ".tmp", "leftover temp file %s", entry.Name())
	}
}
