package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelgrab/internal/runner"
	"reelgrab/pkg/config"
	"reelgrab/pkg/downloader"
	"reelgrab/pkg/engine"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/models"
	"reelgrab/pkg/workspace"
)

const reelURL = "https://www.instagram.com/reel/ABC123/"

type stubEngine struct {
	kind models.EngineKind
}

var _ engine.Engine = (*stubEngine)(nil)

func (s *stubEngine) Kind() models.EngineKind { return s.kind }

func (s *stubEngine) Fetch(ctx context.Context, req *engine.FetchRequest) (*models.FetchResult, error) {
	dir, err := workspace.EnsureItemDir(req.SessionDir, req.SequenceNumber)
	if err != nil {
		return nil, err
	}
	result := models.NewFetchResult(dir)
	result.Title = "Reel"
	result.MarkProduced(models.ArtifactVideo)
	req.OnProgress(req.Item.SourceURL, 100, "Completed")
	return result, nil
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	core := downloader.NewWithEngines(
		[]engine.Engine{&stubEngine{kind: models.EngineYtDlp}},
		nil,
		workspace.NewManager(t.TempDir(), "session_"),
		logger.NewNopLogger(),
	)
	r := runner.New(core, nil, logger.NewNopLogger())
	r.Start()
	t.Cleanup(r.Stop)

	cfg := &config.ServerConfig{Address: "127.0.0.1:0", ShutdownTimeout: config.Duration(time.Second)}
	server := httptest.NewServer(NewServer(cfg, r, logger.NewNopLogger()).Handler())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func waitForTerminal(t *testing.T, serverURL, jobID string) runner.JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(serverURL + "/api/v1/downloads/" + jobID)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var status runner.JobStatus
		decodeInto(t, resp, &status)
		if status.State == runner.JobCompleted || status.State == runner.JobFailed {
			return status
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return runner.JobStatus{}
}

func TestSubmitAndStatus(t *testing.T) {
	server := testServer(t)

	resp := postJSON(t, server.URL+"/api/v1/downloads", `{"urls": ["`+reelURL+`"]}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitted struct {
		JobID string          `json:"job_id"`
		State runner.JobState `json:"state"`
	}
	decodeInto(t, resp, &submitted)
	require.NotEmpty(t, submitted.JobID)
	assert.Equal(t, runner.JobQueued, submitted.State)

	status := waitForTerminal(t, server.URL, submitted.JobID)
	assert.Equal(t, runner.JobCompleted, status.State)
	require.NotNil(t, status.Summary)
	assert.Equal(t, 1, status.Summary.Completed)
	require.Len(t, status.Summary.Items, 1)
	assert.Equal(t, models.StatusCompleted, status.Summary.Items[0].Status)
}

func TestSubmitCarriesOptions(t *testing.T) {
	server := testServer(t)

	body := `{"urls": ["` + reelURL + `"], "options": {"video": false, "audio": true, "preferred_engine": "ytdlp"}}`
	resp := postJSON(t, server.URL+"/api/v1/downloads", body)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitted struct {
		JobID string `json:"job_id"`
	}
	decodeInto(t, resp, &submitted)

	status := waitForTerminal(t, server.URL, submitted.JobID)
	assert.False(t, status.Options.Video)
	assert.True(t, status.Options.Audio)
	assert.Equal(t, models.EngineYtDlp, status.Options.PreferredEngine)
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	server := testServer(t)

	resp := postJSON(t, server.URL+"/api/v1/downloads", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var payload map[string]string
	decodeInto(t, resp, &payload)
	assert.Equal(t, "urls is required", payload["error"])

	resp = postJSON(t, server.URL+"/api/v1/downloads", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	body := `{"urls": ["` + reelURL + `"], "options": {"preferred_engine": "curl"}}`
	resp = postJSON(t, server.URL+"/api/v1/downloads", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decodeInto(t, resp, &payload)
	assert.Contains(t, payload["error"], "unknown engine")
}

func TestStatusNotFound(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get(server.URL + "/api/v1/downloads/no-such-job")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidateEndpoint(t *testing.T) {
	server := testServer(t)

	body := `{"urls": ["` + reelURL + `", "https://example.com/x", "instagram.com/p/XYZ789/"]}`
	resp := postJSON(t, server.URL+"/api/v1/validate", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Results []struct {
			URL       string `json:"url"`
			Valid     bool   `json:"valid"`
			Shortcode string `json:"shortcode"`
			Error     string `json:"error"`
		} `json:"results"`
	}
	decodeInto(t, resp, &payload)
	require.Len(t, payload.Results, 3)

	assert.True(t, payload.Results[0].Valid)
	assert.Equal(t, "ABC123", payload.Results[0].Shortcode)

	assert.False(t, payload.Results[1].Valid)
	assert.NotEmpty(t, payload.Results[1].Error)

	assert.True(t, payload.Results[2].Valid, "scheme-less shared links count as valid")
	assert.Equal(t, "XYZ789", payload.Results[2].Shortcode)
}

func TestHealthz(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Status     string `json:"status"`
		QueueDepth int    `json:"queue_depth"`
	}
	decodeInto(t, resp, &payload)
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, 0, payload.QueueDepth)
}

func TestMethodNotAllowed(t *testing.T) {
	server := testServer(t)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/healthz", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
