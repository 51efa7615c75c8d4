package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelgrab/pkg/config"
	"reelgrab/pkg/errors"
	"reelgrab/pkg/logger"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()

	cfg := &config.InstagramConfig{
		UserAgent: "test-agent",
	}
	client := NewClient(cfg, 5*time.Second, logger.NewNopLogger())
	client.SetBaseURL(server.URL)
	return client
}

const postJSON = `{
	"data": {
		"shortcode_media": {
			"id": "321",
			"shortcode": "ABC123",
			"is_video": true,
			"video_url": "https://cdn.example.com/video.mp4",
			"display_url": "https://cdn.example.com/thumb.jpg",
			"video_duration": 14.5,
			"owner": {"id": "9", "username": "creator", "full_name": "Creator"},
			"edge_media_to_caption": {"edges": [{"node": {"text": "my caption"}}]}
		}
	},
	"status": "ok"
}`

func TestFetchPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PostEndpoint, r.URL.Path)
		assert.Equal(t, PostQueryHash, r.URL.Query().Get("query_hash"))
		assert.Contains(t, r.URL.Query().Get("variables"), "ABC123")
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(postJSON))
	}))
	defer server.Close()

	client := testClient(t, server)

	post, err := client.FetchPost(context.Background(), "ABC123")
	require.NoError(t, err)

	assert.Equal(t, "ABC123", post.Shortcode)
	assert.True(t, post.IsVideo)
	assert.Equal(t, "https://cdn.example.com/video.mp4", post.VideoURL)
	assert.Equal(t, "https://cdn.example.com/thumb.jpg", post.DisplayURL)
	assert.Equal(t, "my caption", post.Caption())
	assert.Equal(t, "creator - ABC123", post.DisplayTitle())
}

func TestFetchPostRequiresLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"requires_to_login": true, "data": {}}`))
	}))
	defer server.Close()

	client := testClient(t, server)

	_, err := client.FetchPost(context.Background(), "ABC123")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth), "expected auth error, got %v", err)
}

func TestFetchPostNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"shortcode_media": null}, "status": "ok"}`))
	}))
	defer server.Close()

	client := testClient(t, server)

	_, err := client.FetchPost(context.Background(), "GONE")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound), "expected not_found error, got %v", err)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantType errors.ErrorType
	}{
		{http.StatusUnauthorized, errors.ErrorTypeAuth},
		{http.StatusForbidden, errors.ErrorTypeAuth},
		{http.StatusNotFound, errors.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errors.ErrorTypeRateLimit},
		{http.StatusInternalServerError, errors.ErrorTypeServerError},
		{http.StatusBadGateway, errors.ErrorTypeServerError},
		{http.StatusTeapot, errors.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := testClient(t, server)

			_, err := client.FetchPost(context.Background(), "ABC123")
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.wantType),
				"status %d: expected %s, got %v", tt.status, tt.wantType, err)
		})
	}
}

func TestFetchPostBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>login page</html>`))
	}))
	defer server.Close()

	client := testClient(t, server)

	_, err := client.FetchPost(context.Background(), "ABC123")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParsing), "expected parsing error, got %v", err)
}

func TestSessionCookieHeader(t *testing.T) {
	var gotCookie, gotCSRF string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotCSRF = r.Header.Get("X-CSRFToken")
		w.Write([]byte(postJSON))
	}))
	defer server.Close()

	cfg := &config.InstagramConfig{
		UserAgent: "test-agent",
		SessionID: "sess-123",
		CSRFToken: "csrf-456",
	}
	client := NewClient(cfg, 5*time.Second, logger.NewNopLogger())
	client.SetBaseURL(server.URL)

	_, err := client.FetchPost(context.Background(), "ABC123")
	require.NoError(t, err)

	assert.Contains(t, gotCookie, "sessionid=sess-123")
	assert.Contains(t, gotCookie, "csrftoken=csrf-456")
	assert.Equal(t, "csrf-456", gotCSRF)
}

func TestDownload(t *testing.T) {
	payload := []byte("binary video bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	client := testClient(t, server)

	data, err := client.Download(context.Background(), server.URL+"/media.mp4")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadTo(t *testing.T) {
	payload := []byte("streamed video bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	client := testClient(t, server)

	path := filepath.Join(t.TempDir(), "video1.mp4")
	written, err := client.DownloadTo(context.Background(), server.URL+"/media.mp4", path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	// The temp file must not survive the rename.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadToPropagatesStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server)

	path := filepath.Join(t.TempDir(), "video1.mp4")
	_, err := client.DownloadTo(context.Background(), server.URL+"/gone.mp4", path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be written on failure")
}
