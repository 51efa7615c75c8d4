// Package api exposes the job runner over a small JSON HTTP surface:
// submit a batch, poll its status, validate URLs, health check. The API is a
// thin shell; all download semantics live behind the runner.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"reelgrab/internal/runner"
	"reelgrab/pkg/config"
	"reelgrab/pkg/instagram"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/models"
)

// Server is the HTTP API around a Runner.
type Server struct {
	runner          *runner.Runner
	logger          logger.Logger
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// NewServer builds the API server. The runner must already be started by
// the caller.
func NewServer(cfg *config.ServerConfig, r *runner.Runner, log logger.Logger) *Server {
	s := &Server{
		runner:          r,
		logger:          log,
		shutdownTimeout: time.Duration(cfg.ShutdownTimeout),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/downloads", s.handleSubmit)
	mux.HandleFunc("GET /api/v1/downloads/{id}", s.handleStatus)
	mux.HandleFunc("POST /api/v1/validate", s.handleValidate)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}
	return s
}

// Handler returns the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully so
// in-flight requests finish within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.logger.InfoWithFields("API server listening", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

type submitRequest struct {
	URLs    []string        `json:"urls"`
	Options *models.Options `json:"options,omitempty"`
}

type submitResponse struct {
	JobID string          `json:"job_id"`
	State runner.JobState `json:"state"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls is required")
		return
	}

	opts := models.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	if opts.PreferredEngine != "" {
		if _, err := models.ParseEngineKind(string(opts.PreferredEngine)); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	jobID, err := s.runner.Submit(req.URLs, opts)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.logger.InfoWithFields("Job accepted", map[string]interface{}{
		"job_id": jobID,
		"urls":   len(req.URLs),
	})
	s.writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID, State: runner.JobQueued})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, ok := s.runner.Status(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

type validateRequest struct {
	URLs []string `json:"urls"`
}

type validateResult struct {
	URL       string `json:"url"`
	Valid     bool   `json:"valid"`
	Shortcode string `json:"shortcode,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls is required")
		return
	}

	results := make([]validateResult, len(req.URLs))
	for i, url := range req.URLs {
		result := validateResult{URL: url}
		if shortcode, err := instagram.ParseShortcode(url); err != nil {
			result.Error = err.Error()
		} else {
			result.Valid = true
			result.Shortcode = shortcode
		}
		results[i] = result
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"queue_depth": s.runner.QueueDepth(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WarnWithFields("Could not write response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
