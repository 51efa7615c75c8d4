package engine

import (
	"context"

	"reelgrab/pkg/models"
)

// FetchRequest carries everything an engine needs to fetch one item.
type FetchRequest struct {
	// Item identifies the post to fetch.
	Item *models.MediaItem

	// SequenceNumber drives the item folder and artifact filenames.
	SequenceNumber int

	// SessionDir is the run's workspace directory. The engine creates its
	// own item folder inside it.
	SessionDir string

	// Options selects which artifacts to produce.
	Options models.Options

	// OnProgress receives coarse milestones. Never nil after Normalize.
	OnProgress models.ProgressFunc
}

// Normalize fills in defaults so engines can rely on the request shape.
func (r *FetchRequest) Normalize() {
	if r.OnProgress == nil {
		r.OnProgress = models.NopProgress
	}
}

// Engine is a download adapter. Exactly two implementations exist, one per
// EngineKind, which is what gives the orchestrator's fixed fallback swap its
// meaning.
//
// Contract for Fetch:
//   - Creates SessionDir/item{N} and records it as the result's OutputDir.
//   - Attempts the video whenever Options.NeedsVideo(); a video failure is
//     fatal and returns an engine typed error.
//   - Thumbnail, caption, and audio extraction failures are non-fatal: the
//     artifact is marked failed in the result, a progress message may
//     mention it, and the fetch carries on.
//   - Progress percents are coarse milestones, non-decreasing within the
//     call, ending at 100 on success.
type Engine interface {
	Kind() models.EngineKind
	Fetch(ctx context.Context, req *FetchRequest) (*models.FetchResult, error)
}
