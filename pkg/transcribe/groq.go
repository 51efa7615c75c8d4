package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reelgrab/pkg/config"
	"reelgrab/pkg/errors"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/media"
	"reelgrab/pkg/models"
	"reelgrab/pkg/retry"
)

// Groq API constants. The endpoints are OpenAI-compatible.
const (
	GroqBaseURL = "https://api.groq.com/openai/v1"

	TranscriptionsEndpoint  = "/audio/transcriptions"
	ChatCompletionsEndpoint = "/chat/completions"

	DefaultWhisperModel = "whisper-large-v3"

	// DefaultMaxUploadMB leaves margin under Groq's hard 25 MB file limit.
	DefaultMaxUploadMB = 24.5

	whisperTemperature = 0.8
	cleanupTemperature = 0.8

	// Keeps a single cleanup call under the free tier's token-per-minute cap.
	cleanupMaxTokens = 4000

	groqRequestTimeout = 2 * time.Minute
)

// DefaultCleanupModels returns the candidate order for the transcript
// cleanup pass, most capable first.
func DefaultCleanupModels() []string {
	return []string{
		"meta-llama/llama-4-scout-17b-16e-instruct",
		"llama-3.3-70b-versatile",
		"llama-3.1-8b-instant",
	}
}

// Reels out of India mix Hindi and English freely, and Whisper tends to emit
// Devanagari for the Hindi parts. The cleanup pass keeps everything in Roman
// script without translating.
const cleanupSystemPrompt = `You are a transcription cleanup assistant for English, Hindi, and mixed Hinglish speech.
Rules:
- Detect the language mix first.
- English content: output clean English with spelling and grammar corrected.
- Hindi or Hinglish content: output Roman script only, never Devanagari. Convert any Devanagari to its Roman equivalent (देख becomes Dekh).
- Keep every word in its original language; never translate.
- Fix garbled words from surrounding context, correct proper nouns, add punctuation and paragraph breaks.
- Preserve the speaker's tone and natural flow.
Return only the cleaned transcription text, with no commentary or formatting markers.`

const cleanupUserPrompt = `Clean up the following transcription according to the rules.

Input:
%s

Output:`

// GroqTranscriber sends audio to Groq's hosted Whisper and optionally runs
// the result through a chat model to fix spelling and script.
type GroqTranscriber struct {
	apiKey        string
	whisperModel  string
	cleanupModels []string
	maxUploadMB   float64
	baseURL       string
	httpClient    *http.Client
	retryCfg      *config.RetryConfig
	media         *media.Processor
	log           logger.Logger
}

// NewGroqTranscriber creates the hosted backend from configuration. Missing
// tuning values fall back to the package defaults; a missing API key is only
// reported by Load so construction never fails.
func NewGroqTranscriber(cfg *config.Config, proc *media.Processor, log logger.Logger) *GroqTranscriber {
	tc := cfg.Transcription

	model := tc.GroqModel
	if model == "" {
		model = DefaultWhisperModel
	}
	cleanup := tc.CleanupModels
	if len(cleanup) == 0 {
		cleanup = DefaultCleanupModels()
	}
	maxMB := tc.MaxUploadMB
	if maxMB <= 0 {
		maxMB = DefaultMaxUploadMB
	}

	return &GroqTranscriber{
		apiKey:        tc.GroqAPIKey,
		whisperModel:  model,
		cleanupModels: cleanup,
		maxUploadMB:   maxMB,
		baseURL:       GroqBaseURL,
		httpClient:    &http.Client{Timeout: groqRequestTimeout},
		retryCfg:      &cfg.Retry,
		media:         proc,
		log:           log.WithField("transcriber", BackendGroq),
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (g *GroqTranscriber) SetBaseURL(base string) {
	g.baseURL = strings.TrimRight(base, "/")
}

// Name identifies this backend.
func (g *GroqTranscriber) Name() string {
	return BackendGroq
}

// Load verifies an API key is configured.
func (g *GroqTranscriber) Load(ctx context.Context) error {
	if g.apiKey == "" {
		return errors.New(errors.ErrorTypeAuth,
			"Groq API key not set. Run 'reelgrab auth set-key', set GROQ_API_KEY, or get a free key at https://console.groq.com")
	}
	return nil
}

// Transcribe uploads the audio to Whisper and, when the options ask for it,
// cleans the text up with a chat model. Once speech-to-text succeeded the
// cleanup pass can only improve the result, never fail it.
func (g *GroqTranscriber) Transcribe(ctx context.Context, audioPath string, opts models.Options, onProgress models.ProgressFunc) (*Result, error) {
	if onProgress == nil {
		onProgress = models.NopProgress
	}
	if err := g.Load(ctx); err != nil {
		return nil, err
	}

	uploadPath, err := g.prepareUpload(ctx, audioPath, onProgress)
	if err != nil {
		return nil, err
	}
	if uploadPath != audioPath {
		defer os.Remove(uploadPath)
	}

	onProgress("", 10, "Uploading audio to Groq Whisper...")
	raw, err := g.transcribeAudio(ctx, uploadPath)
	if err != nil {
		return nil, err
	}
	onProgress("", 50, "Audio transcription completed")

	text := raw
	if opts.NormalizeTranscript && raw != "" {
		text = g.cleanupTranscript(ctx, raw, onProgress)
	}

	onProgress("", 100, "Transcription completed")
	return &Result{Text: text, RawText: raw}, nil
}

// prepareUpload shrinks oversized audio below the upload ceiling. A failed
// re-encode hands back the original file and lets the upload decide.
func (g *GroqTranscriber) prepareUpload(ctx context.Context, audioPath string, onProgress models.ProgressFunc) (string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeTranscription, "audio file not readable", err)
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB <= g.maxUploadMB {
		return audioPath, nil
	}

	onProgress("", 5, fmt.Sprintf("Compressing audio (%.1f MB, limit %.1f MB)...", sizeMB, g.maxUploadMB))
	out, err := g.media.ReencodeForUpload(ctx, audioPath, g.maxUploadMB)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeTranscription, "could not prepare audio for upload", err)
	}
	return out, nil
}

// transcribeAudio runs the Whisper upload with bounded retries on retryable
// statuses (429, 5xx, network).
func (g *GroqTranscriber) transcribeAudio(ctx context.Context, audioPath string) (string, error) {
	cfg := retry.FromConfig(g.retryCfg, ctx, g.log)
	text, err := retry.DoWithResult(func() (string, error) {
		return g.postTranscription(ctx, audioPath)
	}, cfg)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeTranscription, "Groq Whisper transcription failed", err)
	}
	return text, nil
}

func (g *GroqTranscriber) postTranscription(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeTranscription, "could not open audio file", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeUnknown, "could not build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", errors.Wrap(errors.ErrorTypeUnknown, "could not read audio file", err)
	}
	fields := map[string]string{
		"model":           g.whisperModel,
		"response_format": "verbose_json",
		"temperature":     strconv.FormatFloat(whisperTemperature, 'f', -1, 64),
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", errors.Wrap(errors.ErrorTypeUnknown, "could not build multipart body", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(errors.ErrorTypeUnknown, "could not finish multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+TranscriptionsEndpoint, &body)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeUnknown, "could not create transcription request", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	g.log.DebugWithFields("Uploading audio for transcription", map[string]interface{}{
		"file":  filepath.Base(audioPath),
		"model": g.whisperModel,
	})

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeNetwork, "transcription request failed", err)
	}
	defer resp.Body.Close()

	if err := checkGroqStatus(resp); err != nil {
		return "", err
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(errors.ErrorTypeParsing, "could not parse transcription response", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}

// cleanupTranscript tries each candidate model in order and falls back to
// the raw text when every one of them fails.
func (g *GroqTranscriber) cleanupTranscript(ctx context.Context, raw string, onProgress models.ProgressFunc) string {
	onProgress("", 60, "Processing transcription with LLM...")

	for _, model := range g.cleanupModels {
		onProgress("", 70, fmt.Sprintf("Cleaning up with %s...", model))

		cleaned, err := g.postChatCompletion(ctx, model, raw)
		if err != nil {
			g.log.WarnWithFields("Cleanup model failed", map[string]interface{}{
				"model": model,
				"error": err.Error(),
			})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if cleaned == "" {
			continue
		}

		onProgress("", 90, "Post-processing completed")
		return cleaned
	}

	g.log.Warn("All cleanup models failed, using raw transcription")
	onProgress("", 90, "Using raw transcription (cleanup failed)")
	return raw
}

func (g *GroqTranscriber) postChatCompletion(ctx context.Context, model, raw string) (string, error) {
	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": cleanupSystemPrompt},
			{"role": "user", "content": fmt.Sprintf(cleanupUserPrompt, raw)},
		},
		"temperature": cleanupTemperature,
		"max_tokens":  cleanupMaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeUnknown, "could not encode chat payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+ChatCompletionsEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeUnknown, "could not create chat request", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeNetwork, "chat request failed", err)
	}
	defer resp.Body.Close()

	if err := checkGroqStatus(resp); err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(errors.ErrorTypeParsing, "could not parse chat response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New(errors.ErrorTypeParsing, "chat completion returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// checkGroqStatus maps non-200 responses onto the error taxonomy, keeping
// Groq's own error message when the body carries one.
func checkGroqStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	message := fmt.Sprintf("Groq API request failed with status %d", resp.StatusCode)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
	}

	errType := errors.ErrorTypeUnknown
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		errType = errors.ErrorTypeAuth
	case resp.StatusCode == http.StatusNotFound:
		errType = errors.ErrorTypeNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		errType = errors.ErrorTypeRateLimit
	case resp.StatusCode >= 500:
		errType = errors.ErrorTypeServerError
	}

	return &errors.Error{
		Type:    errType,
		Message: message,
		Code:    resp.StatusCode,
	}
}
