package models

import "time"

// MediaItem represents one requested piece of content across its lifecycle.
// It is created when a URL is accepted and mutated only by the orchestrator.
type MediaItem struct {
	SourceURL      string     `json:"source_url"`
	Shortcode      string     `json:"shortcode,omitempty"`
	SequenceNumber int        `json:"sequence_number"`
	Status         ItemStatus `json:"status"`
	Progress       int        `json:"progress"`

	Title          string `json:"title,omitempty"`
	VideoPath      string `json:"video_path,omitempty"`
	ThumbnailPath  string `json:"thumbnail_path,omitempty"`
	AudioPath      string `json:"audio_path,omitempty"`
	CaptionText    string `json:"caption_text,omitempty"`
	CaptionPath    string `json:"caption_path,omitempty"`
	TranscriptText string `json:"transcript_text,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	OutputFolder   string `json:"output_folder,omitempty"`

	// Artifacts records the explicit outcome per artifact so consumers can
	// tell "skipped by option" apart from "attempted and failed".
	Artifacts map[string]ArtifactState `json:"artifacts,omitempty"`
}

// NewMediaItem creates a pending item for a URL with its run-scoped sequence number
func NewMediaItem(sourceURL string, sequenceNumber int) *MediaItem {
	return &MediaItem{
		SourceURL:      sourceURL,
		SequenceNumber: sequenceNumber,
		Status:         StatusPending,
		Artifacts:      make(map[string]ArtifactState),
	}
}

// Options is the immutable option snapshot for one run
type Options struct {
	Video      bool `json:"video"`
	Thumbnail  bool `json:"thumbnail"`
	Audio      bool `json:"audio"`
	Caption    bool `json:"caption"`
	Transcript bool `json:"transcript"`

	PreferredEngine     EngineKind `json:"preferred_engine"`
	NormalizeTranscript bool       `json:"normalize_transcript"`
}

// DefaultOptions returns the option set used when a shell passes nothing
func DefaultOptions() Options {
	return Options{
		Video:           true,
		Thumbnail:       true,
		Caption:         true,
		PreferredEngine: EngineYtDlp,
	}
}

// Normalized returns a copy with the audio requirement forced on whenever a
// transcript is wanted. Audio is the transcription input, not a separate
// deliverable, so the rule is applied once here and nowhere else. Applying it
// twice is a no-op.
func (o Options) Normalized() Options {
	if o.Transcript {
		o.Audio = true
	}
	if o.PreferredEngine == "" {
		o.PreferredEngine = EngineYtDlp
	}
	return o
}

// NeedsVideo reports whether an engine must attempt video retrieval. The
// video file is the only source of audio, so audio or transcript requests
// imply it.
func (o Options) NeedsVideo() bool {
	return o.Video || o.Audio || o.Transcript
}

// FetchResult is the uniform record every engine returns on success
type FetchResult struct {
	Title         string `json:"title,omitempty"`
	OutputDir     string `json:"output_dir"`
	VideoPath     string `json:"video_path,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	AudioPath     string `json:"audio_path,omitempty"`
	CaptionPath   string `json:"caption_path,omitempty"`
	CaptionText   string `json:"caption_text,omitempty"`

	Artifacts map[string]ArtifactState `json:"artifacts"`
}

// NewFetchResult creates a result for an item directory with every engine
// artifact starting out as skipped
func NewFetchResult(outputDir string) *FetchResult {
	return &FetchResult{
		OutputDir: outputDir,
		Artifacts: map[string]ArtifactState{
			ArtifactVideo:     ArtifactSkipped,
			ArtifactThumbnail: ArtifactSkipped,
			ArtifactAudio:     ArtifactSkipped,
			ArtifactCaption:   ArtifactSkipped,
		},
	}
}

// MarkProduced records a successfully written artifact
func (r *FetchResult) MarkProduced(artifact string) {
	r.Artifacts[artifact] = ArtifactProduced
}

// MarkFailed records an attempted artifact that was lost non-fatally
func (r *FetchResult) MarkFailed(artifact string) {
	r.Artifacts[artifact] = ArtifactFailed
}

// RunSummary aggregates the outcome of one orchestrator run
type RunSummary struct {
	WorkspaceDir string        `json:"workspace_dir"`
	Requested    int           `json:"requested"`
	Completed    int           `json:"completed"`
	Failed       int           `json:"failed"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Items        []*MediaItem  `json:"items"`
}

// Add records a terminal item in the summary
func (s *RunSummary) Add(item *MediaItem) {
	s.Items = append(s.Items, item)
	switch item.Status {
	case StatusCompleted:
		s.Completed++
	case StatusFailed:
		s.Failed++
	}
}

// ProgressFunc is the callback boundary exposed to shells. An empty url
// denotes a run-level message; per-item percents are monotonically
// non-decreasing in [0,100].
type ProgressFunc func(url string, percent int, message string)

// NopProgress discards progress events
func NopProgress(url string, percent int, message string) {}
