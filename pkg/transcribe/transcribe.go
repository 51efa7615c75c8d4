package transcribe

import (
	"context"

	"reelgrab/pkg/config"
	"reelgrab/pkg/errors"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/media"
	"reelgrab/pkg/models"
)

// Backend names accepted in configuration.
const (
	BackendGroq  = "groq"
	BackendLocal = "local"
)

// Result carries the transcription output. Text is the final text callers
// should use; RawText preserves the unprocessed speech-to-text output when a
// cleanup pass rewrote it.
type Result struct {
	Text    string `json:"text"`
	RawText string `json:"raw_text,omitempty"`
}

// Transcriber turns a fetched audio file into text.
type Transcriber interface {
	// Name identifies the backend in logs and run records.
	Name() string

	// Load prepares the backend. Safe to call repeatedly and from multiple
	// goroutines; the work (and its outcome) happens once.
	Load(ctx context.Context) error

	// Transcribe produces text for the audio file. Progress messages carry
	// an empty url and the backend's own 0..100 scale.
	Transcribe(ctx context.Context, audioPath string, opts models.Options, onProgress models.ProgressFunc) (*Result, error)
}

// New selects the transcription backend named in the configuration.
func New(cfg *config.Config, proc *media.Processor, log logger.Logger) (Transcriber, error) {
	switch cfg.Transcription.Backend {
	case BackendGroq, "":
		return NewGroqTranscriber(cfg, proc, log), nil
	case BackendLocal:
		return NewLocalTranscriber(cfg, proc, log), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown transcription backend: %s", cfg.Transcription.Backend)
	}
}

// Ensure both backends satisfy the interface.
var (
	_ Transcriber = (*GroqTranscriber)(nil)
	_ Transcriber = (*LocalTranscriber)(nil)
)
