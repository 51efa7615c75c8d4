package models

import "fmt"

// ItemStatus represents the lifecycle state of a requested media item
type ItemStatus string

const (
	// StatusPending means the item is accepted but not started
	StatusPending ItemStatus = "Pending"

	// StatusInProgress means an engine is fetching the item
	StatusInProgress ItemStatus = "InProgress"

	// StatusCompleted means the item finished with its primary artifact secured
	StatusCompleted ItemStatus = "Completed"

	// StatusFailed means both engines failed to fetch the item
	StatusFailed ItemStatus = "Failed"
)

// String returns the string representation of ItemStatus
func (s ItemStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the item has reached a final state
func (s ItemStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// EngineKind identifies one of the two download engines
type EngineKind string

const (
	// EngineYtDlp drives the external yt-dlp tool
	EngineYtDlp EngineKind = "ytdlp"

	// EngineNative uses the direct Instagram web client
	EngineNative EngineKind = "native"
)

// String returns the string representation of EngineKind
func (k EngineKind) String() string {
	return string(k)
}

// Other returns the opposite engine. There are exactly two engines, so
// fallback is a fixed swap rather than a ranked list.
func (k EngineKind) Other() EngineKind {
	if k == EngineYtDlp {
		return EngineNative
	}
	return EngineYtDlp
}

// ParseEngineKind converts a config string into an EngineKind
func ParseEngineKind(s string) (EngineKind, error) {
	switch s {
	case string(EngineYtDlp):
		return EngineYtDlp, nil
	case string(EngineNative):
		return EngineNative, nil
	default:
		return "", fmt.Errorf("unknown engine %q", s)
	}
}

// ArtifactState records how a single artifact ended up
type ArtifactState string

const (
	// ArtifactSkipped means the artifact was not requested
	ArtifactSkipped ArtifactState = "skipped"

	// ArtifactProduced means the artifact was retrieved and written
	ArtifactProduced ArtifactState = "produced"

	// ArtifactFailed means retrieval was attempted and lost, non-fatally
	ArtifactFailed ArtifactState = "failed"
)

// Artifact names used as keys in per-item artifact status maps
const (
	ArtifactVideo      = "video"
	ArtifactThumbnail  = "thumbnail"
	ArtifactAudio      = "audio"
	ArtifactCaption    = "caption"
	ArtifactTranscript = "transcript"
)
