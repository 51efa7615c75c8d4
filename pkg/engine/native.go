package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"reelgrab/pkg/config"
	"reelgrab/pkg/errors"
	"reelgrab/pkg/instagram"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/media"
	"reelgrab/pkg/models"
	"reelgrab/pkg/ratelimit"
	"reelgrab/pkg/retry"
	"reelgrab/pkg/workspace"
)

// NativeEngine fetches reels straight from Instagram's GraphQL endpoint.
// It needs no external binary, which makes it the natural fallback when
// yt-dlp is missing or blocked, at the price of being more exposed to
// Instagram-side changes and rate limiting.
type NativeEngine struct {
	client   *instagram.Client
	media    *media.Processor
	limiter  ratelimit.Limiter
	retryCfg *config.RetryConfig
	log      logger.Logger
}

var _ Engine = (*NativeEngine)(nil)

// NewNativeEngine creates the direct-API engine. The limiter paces every
// request against Instagram, including media downloads.
func NewNativeEngine(client *instagram.Client, proc *media.Processor, limiter ratelimit.Limiter, retryCfg *config.RetryConfig, log logger.Logger) *NativeEngine {
	return &NativeEngine{
		client:   client,
		media:    proc,
		limiter:  limiter,
		retryCfg: retryCfg,
		log:      log.WithField("engine", models.EngineNative.String()),
	}
}

// Kind reports which engine this is.
func (e *NativeEngine) Kind() models.EngineKind {
	return models.EngineNative
}

// Fetch downloads one reel into its item directory. Metadata lookup and the
// video download are fatal when they fail; thumbnail, audio extraction, and
// caption degrade to failed artifact marks.
func (e *NativeEngine) Fetch(ctx context.Context, req *FetchRequest) (*models.FetchResult, error) {
	req.Normalize()
	opts := req.Options
	url := req.Item.SourceURL
	seq := req.SequenceNumber

	shortcode := req.Item.Shortcode
	if shortcode == "" {
		parsed, err := instagram.ParseShortcode(url)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeEngine, "unrecognized reel URL", err)
		}
		shortcode = parsed
	}

	itemDir, err := workspace.EnsureItemDir(req.SessionDir, seq)
	if err != nil {
		return nil, err
	}
	result := models.NewFetchResult(itemDir)

	req.OnProgress(url, 10, "Fetching reel data...")

	post, err := e.fetchPost(ctx, shortcode)
	if err != nil {
		return nil, err
	}
	result.Title = postTitle(post, seq)

	videoPath := ""
	if opts.NeedsVideo() {
		req.OnProgress(url, 20, "Downloading video...")
		videoPath, err = e.downloadVideo(ctx, post, itemDir, seq)
		if err != nil {
			return nil, err
		}
		if opts.Video {
			result.VideoPath = videoPath
			result.MarkProduced(models.ArtifactVideo)
		}
	}

	if opts.Thumbnail {
		req.OnProgress(url, 40, "Downloading thumbnail...")
		e.fetchPostThumbnail(ctx, post, itemDir, seq, result)
	}

	if opts.Audio {
		req.OnProgress(url, 60, "Extracting audio...")
		e.extractPostAudio(ctx, videoPath, itemDir, seq, result)
	}

	if opts.Caption {
		req.OnProgress(url, 80, "Getting caption...")
		e.writePostCaption(post, itemDir, seq, result)
	}

	req.OnProgress(url, 100, "Completed")
	return result, nil
}

// fetchPost looks up post metadata with pacing and retries. Auth and
// rate-limit causes stay on the error chain for the shell to inspect.
func (e *NativeEngine) fetchPost(ctx context.Context, shortcode string) (*instagram.PostMedia, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := retry.FromConfig(e.retryCfg, ctx, e.log)
	post, err := retry.DoWithResult(func() (*instagram.PostMedia, error) {
		return e.client.FetchPost(ctx, shortcode)
	}, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeEngine, "could not fetch reel metadata", err)
	}
	return post, nil
}

func (e *NativeEngine) downloadVideo(ctx context.Context, post *instagram.PostMedia, itemDir string, seq int) (string, error) {
	if !post.IsVideo || post.VideoURL == "" {
		return "", errors.Newf(errors.ErrorTypeEngine, "post %s has no video stream", post.Shortcode)
	}

	videoPath := filepath.Join(itemDir, workspace.VideoName(seq, "mp4"))
	cfg := retry.FromConfig(e.retryCfg, ctx, e.log)
	err := retry.Do(func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := e.client.DownloadTo(ctx, post.VideoURL, videoPath)
		return err
	}, cfg)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeEngine, "video download failed", err)
	}
	return videoPath, nil
}

func (e *NativeEngine) fetchPostThumbnail(ctx context.Context, post *instagram.PostMedia, itemDir string, seq int, result *models.FetchResult) {
	if post.DisplayURL == "" {
		e.log.Warn("Post has no display URL, skipping thumbnail")
		result.MarkFailed(models.ArtifactThumbnail)
		return
	}
	if err := e.limiter.Wait(ctx); err != nil {
		result.MarkFailed(models.ArtifactThumbnail)
		return
	}

	thumbPath := filepath.Join(itemDir, workspace.ThumbnailName(seq))
	if _, err := e.client.DownloadTo(ctx, post.DisplayURL, thumbPath); err != nil {
		e.log.WithError(err).Warn("Thumbnail download failed, continuing")
		result.MarkFailed(models.ArtifactThumbnail)
		return
	}
	result.ThumbnailPath = thumbPath
	result.MarkProduced(models.ArtifactThumbnail)
}

func (e *NativeEngine) extractPostAudio(ctx context.Context, videoPath, itemDir string, seq int, result *models.FetchResult) {
	audioPath := filepath.Join(itemDir, workspace.AudioName(seq))
	if err := e.media.ExtractAudio(ctx, videoPath, audioPath, nil); err != nil {
		e.log.WithError(err).Warn("Audio extraction failed, continuing")
		result.MarkFailed(models.ArtifactAudio)
		return
	}
	result.AudioPath = audioPath
	result.MarkProduced(models.ArtifactAudio)
}

func (e *NativeEngine) writePostCaption(post *instagram.PostMedia, itemDir string, seq int, result *models.FetchResult) {
	caption := post.Caption()
	if caption == "" {
		caption = DefaultCaption
	}

	captionPath := filepath.Join(itemDir, workspace.CaptionName(seq))
	if err := workspace.WriteText(captionPath, caption); err != nil {
		e.log.WithError(err).Warn("Caption write failed, continuing")
		result.MarkFailed(models.ArtifactCaption)
		return
	}
	result.CaptionText = caption
	result.CaptionPath = captionPath
	result.MarkProduced(models.ArtifactCaption)
}

func postTitle(post *instagram.PostMedia, seq int) string {
	if title := post.DisplayTitle(); title != "" {
		return title
	}
	return fmt.Sprintf("Reel %d", seq)
}
