package downloader

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"reelgrab/pkg/config"
	"reelgrab/pkg/engine"
	"reelgrab/pkg/errors"
	"reelgrab/pkg/instagram"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/media"
	"reelgrab/pkg/models"
	"reelgrab/pkg/ratelimit"
	"reelgrab/pkg/transcribe"
	"reelgrab/pkg/workspace"
)

// TranscriptSkippedNoAudio is the annotation recorded when a transcript was
// requested but the engine produced no audio track to transcribe.
const TranscriptSkippedNoAudio = "Transcription skipped: no audio"

// Percent bands used when a transcript is requested: the engine stage is
// compressed into [0,transcriptFloor] and the transcription stage into
// [transcriptFloor,transcriptCeil], so an item's percents keep climbing
// across both stages. The orchestrator itself emits the final 100.
const (
	transcriptFloor = 80
	transcriptCeil  = 99
)

// Downloader runs batches of reel URLs through the two download engines and
// the optional transcriber, one item at a time.
type Downloader struct {
	engines     map[models.EngineKind]engine.Engine
	transcriber transcribe.Transcriber
	workspace   *workspace.Manager
	log         logger.Logger
	onProgress  models.ProgressFunc
}

// New wires a Downloader with the real engines and the configured
// transcription backend.
func New(cfg *config.Config, log logger.Logger) (*Downloader, error) {
	client := instagram.NewClient(&cfg.Instagram, time.Duration(cfg.Download.DownloadTimeout), log)
	processor := media.NewProcessor(&cfg.Media, log)
	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)

	transcriber, err := transcribe.New(cfg, processor, log)
	if err != nil {
		return nil, err
	}

	return &Downloader{
		engines: map[models.EngineKind]engine.Engine{
			models.EngineYtDlp:  engine.NewYtDlpEngine(&cfg.Engines, client, processor, log),
			models.EngineNative: engine.NewNativeEngine(client, processor, limiter, &cfg.Retry, log),
		},
		transcriber: transcriber,
		workspace:   workspace.NewManager(cfg.Output.BaseDirectory, cfg.Output.WorkspacePrefix),
		log:         log,
	}, nil
}

// NewWithEngines wires a Downloader from explicit collaborators. The
// transcriber may be nil when transcripts are never requested.
func NewWithEngines(engines []engine.Engine, transcriber transcribe.Transcriber, ws *workspace.Manager, log logger.Logger) *Downloader {
	byKind := make(map[models.EngineKind]engine.Engine, len(engines))
	for _, e := range engines {
		byKind[e.Kind()] = e
	}
	return &Downloader{
		engines:     byKind,
		transcriber: transcriber,
		workspace:   ws,
		log:         log,
	}
}

// SetProgressFunc installs the progress callback. Call before Run.
func (d *Downloader) SetProgressFunc(fn models.ProgressFunc) {
	d.onProgress = fn
}

// Run processes the URLs strictly in order and returns a summary covering
// every item that reached a terminal state. Invalid URLs fail their item
// without touching an engine; engine failures fail only their item; the run
// itself errors only on workspace setup failure or cancellation.
// Cancellation is honored between items, never mid-item.
func (d *Downloader) Run(ctx context.Context, urls []string, opts models.Options) (*models.RunSummary, error) {
	if len(urls) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "no URLs to process")
	}
	opts = opts.Normalized()

	summary := &models.RunSummary{
		Requested: len(urls),
		StartedAt: time.Now(),
	}
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
	}()

	items := make([]*models.MediaItem, len(urls))
	valid := 0
	for i, raw := range urls {
		item := models.NewMediaItem(strings.TrimSpace(raw), i+1)
		if shortcode, err := instagram.ParseShortcode(item.SourceURL); err != nil {
			item.Status = models.StatusFailed
			item.ErrorMessage = "Invalid URL: " + messageOf(err)
			d.log.WarnWithFields("Rejected URL", map[string]interface{}{
				"url":   item.SourceURL,
				"error": err.Error(),
			})
		} else {
			item.Shortcode = shortcode
			valid++
		}
		items[i] = item
	}

	var sessionDir string
	if valid > 0 {
		dir, err := d.workspace.Create()
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeWorkspace, "could not create workspace", err)
		}
		sessionDir = dir
		summary.WorkspaceDir = dir
	}

	d.emit("", 0, fmt.Sprintf("Processing %d reel(s)", len(items)))

	var runErr error
	for _, item := range items {
		if item.Status == models.StatusFailed {
			summary.Add(item)
			continue
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		d.processItem(ctx, item, sessionDir, opts)
		summary.Add(item)
	}

	if runErr != nil {
		d.emit("", 100, "Run cancelled")
	} else {
		d.emit("", 100, fmt.Sprintf("Run finished: %d completed, %d failed", summary.Completed, summary.Failed))
	}
	d.log.InfoWithFields("Run finished", map[string]interface{}{
		"requested": summary.Requested,
		"completed": summary.Completed,
		"failed":    summary.Failed,
		"workspace": summary.WorkspaceDir,
	})
	return summary, runErr
}

// processItem drives one item to a terminal state. Engine failure after
// fallback is the only path to StatusFailed; transcription problems only
// annotate the item.
func (d *Downloader) processItem(ctx context.Context, item *models.MediaItem, sessionDir string, opts models.Options) {
	item.Status = models.StatusInProgress
	progress := d.itemProgress(item)

	engineProgress := progress
	if opts.Transcript {
		engineProgress = bandProgress(progress, 0, transcriptFloor)
	}

	result, err := d.fetchWithFallback(ctx, item, sessionDir, opts, engineProgress)
	if err != nil {
		item.Status = models.StatusFailed
		item.ErrorMessage = messageOf(err)
		d.log.ErrorWithFields("Item failed", map[string]interface{}{
			"url":   item.SourceURL,
			"error": err.Error(),
		})
		return
	}
	d.applyResult(item, result)

	if opts.Transcript {
		d.transcribeItem(ctx, item, opts, bandProgress(progress, transcriptFloor, transcriptCeil))
	}

	progress(item.SourceURL, 100, "Completed")
	item.Status = models.StatusCompleted
}

// fetchWithFallback tries the preferred engine, then the opposite one. Any
// primary error triggers the swap except cancellation. Both failing joins
// the two messages so neither cause is lost.
func (d *Downloader) fetchWithFallback(ctx context.Context, item *models.MediaItem, sessionDir string, opts models.Options, progress models.ProgressFunc) (*models.FetchResult, error) {
	primaryKind := opts.PreferredEngine
	secondaryKind := primaryKind.Other()

	primary := d.engines[primaryKind]
	secondary := d.engines[secondaryKind]
	if primary == nil && secondary == nil {
		return nil, errors.New(errors.ErrorTypeEngine, "no download engines configured")
	}
	if primary == nil {
		primary, primaryKind = secondary, secondaryKind
		secondary = nil
	}

	result, primErr := primary.Fetch(ctx, d.request(item, sessionDir, opts, progress))
	if primErr == nil {
		return result, nil
	}
	if ctx.Err() != nil || secondary == nil {
		return nil, primErr
	}

	logger.LogEngineFallback(item.SourceURL, primaryKind.String(), secondaryKind.String(), primErr)
	progress(item.SourceURL, 0, fmt.Sprintf("Primary engine failed, retrying with %s...", secondaryKind))

	result, secErr := secondary.Fetch(ctx, d.request(item, sessionDir, opts, progress))
	if secErr == nil {
		return result, nil
	}
	return nil, errors.Newf(errors.ErrorTypeEngine, "%s | %s", messageOf(primErr), messageOf(secErr))
}

func (d *Downloader) request(item *models.MediaItem, sessionDir string, opts models.Options, progress models.ProgressFunc) *engine.FetchRequest {
	req := &engine.FetchRequest{
		Item:           item,
		SequenceNumber: item.SequenceNumber,
		SessionDir:     sessionDir,
		Options:        opts,
		OnProgress:     progress,
	}
	req.Normalize()
	return req
}

// applyResult copies the engine's artifact record onto the item.
func (d *Downloader) applyResult(item *models.MediaItem, result *models.FetchResult) {
	item.Title = result.Title
	item.OutputFolder = result.OutputDir
	item.VideoPath = result.VideoPath
	item.ThumbnailPath = result.ThumbnailPath
	item.AudioPath = result.AudioPath
	item.CaptionPath = result.CaptionPath
	item.CaptionText = result.CaptionText
	for artifact, state := range result.Artifacts {
		item.Artifacts[artifact] = state
	}
}

// transcribeItem runs the transcription stage. Every outcome short of a
// produced transcript annotates ErrorMessage and leaves the item Completed.
func (d *Downloader) transcribeItem(ctx context.Context, item *models.MediaItem, opts models.Options, progress models.ProgressFunc) {
	if item.AudioPath == "" {
		item.ErrorMessage = TranscriptSkippedNoAudio
		item.Artifacts[models.ArtifactTranscript] = models.ArtifactSkipped
		d.log.WarnWithFields("Transcription skipped", map[string]interface{}{
			"url":    item.SourceURL,
			"reason": "no audio artifact",
		})
		return
	}
	if d.transcriber == nil {
		item.ErrorMessage = "Transcription skipped: no transcriber configured"
		item.Artifacts[models.ArtifactTranscript] = models.ArtifactSkipped
		return
	}

	res, err := d.transcriber.Transcribe(ctx, item.AudioPath, opts, progress)
	if err != nil {
		item.ErrorMessage = "Transcription failed: " + messageOf(err)
		item.Artifacts[models.ArtifactTranscript] = models.ArtifactFailed
		d.log.WarnWithFields("Transcription failed", map[string]interface{}{
			"url":   item.SourceURL,
			"audio": item.AudioPath,
			"error": err.Error(),
		})
		return
	}

	path := filepath.Join(item.OutputFolder, workspace.TranscriptName(item.SequenceNumber))
	if err := workspace.WriteText(path, formatTranscript(res)); err != nil {
		item.ErrorMessage = "Transcription failed: " + messageOf(err)
		item.Artifacts[models.ArtifactTranscript] = models.ArtifactFailed
		return
	}
	item.TranscriptText = res.Text
	item.TranscriptPath = path
	item.Artifacts[models.ArtifactTranscript] = models.ArtifactProduced
}

// formatTranscript renders the transcript file body. When LLM cleanup
// changed the text, both versions are kept so the raw Whisper output stays
// inspectable.
func formatTranscript(res *transcribe.Result) string {
	final := strings.TrimSpace(res.Text)
	raw := strings.TrimSpace(res.RawText)
	if raw == "" || raw == final {
		return final + "\n"
	}
	return fmt.Sprintf("=== FINAL TRANSCRIPTION ===\n\n%s\n\n=== RAW WHISPER OUTPUT ===\n\n%s\n", final, raw)
}

// itemProgress returns the per-item progress sink: it clamps percents to
// [0,100], keeps them non-decreasing, mirrors them onto the item, and
// forwards to the run callback.
func (d *Downloader) itemProgress(item *models.MediaItem) models.ProgressFunc {
	last := 0
	return func(_ string, percent int, message string) {
		if percent < last {
			percent = last
		}
		if percent > 100 {
			percent = 100
		}
		last = percent
		item.Progress = percent
		d.emit(item.SourceURL, percent, message)
	}
}

// bandProgress rescales a stage's local 0..100 percents into [floor,ceil].
func bandProgress(next models.ProgressFunc, floor, ceil int) models.ProgressFunc {
	return func(url string, percent int, message string) {
		next(url, floor+percent*(ceil-floor)/100, message)
	}
}

func (d *Downloader) emit(url string, percent int, message string) {
	if d.onProgress != nil {
		d.onProgress(url, percent, message)
	}
}

// messageOf prefers the curated message of a typed error over the full
// prefixed rendering for user-facing annotations.
func messageOf(err error) string {
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return typed.Message
	}
	return err.Error()
}
