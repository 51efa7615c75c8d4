package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"reelgrab/pkg/config"
	"reelgrab/pkg/errors"
	"reelgrab/pkg/instagram"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/media"
	"reelgrab/pkg/models"
	"reelgrab/pkg/workspace"
)

const (
	// DefaultCaption is written when a post carries no caption text.
	DefaultCaption = "No caption available"

	progressInterval = 500 * time.Millisecond

	// Byte-level download progress is squeezed into this band so the
	// milestones that follow (audio extraction at 60, completion at 100)
	// keep the reported percent monotonic.
	downloadBandFloor = 10
	downloadBandCeil  = 55
)

// YtDlpEngine fetches reels by driving the yt-dlp tool through go-ytdlp.
// It is the preferred engine: yt-dlp tracks Instagram's markup churn far
// better than any hand-rolled client can.
type YtDlpEngine struct {
	format string
	client *instagram.Client
	media  *media.Processor
	log    logger.Logger
}

var _ Engine = (*YtDlpEngine)(nil)

// NewYtDlpEngine creates the yt-dlp backed engine. The Instagram client is
// only used for thumbnail downloads; yt-dlp handles the video itself.
func NewYtDlpEngine(cfg *config.EnginesConfig, client *instagram.Client, proc *media.Processor, log logger.Logger) *YtDlpEngine {
	format := cfg.VideoFormat
	if format == "" {
		format = "best[ext=mp4]/best"
	}
	return &YtDlpEngine{
		format: format,
		client: client,
		media:  proc,
		log:    log.WithField("engine", models.EngineYtDlp.String()),
	}
}

// Kind reports which engine this is.
func (e *YtDlpEngine) Kind() models.EngineKind {
	return models.EngineYtDlp
}

// Fetch downloads one reel into its item directory. The video download is
// the only fatal step; thumbnail, caption, and audio extraction degrade to
// failed artifact marks.
func (e *YtDlpEngine) Fetch(ctx context.Context, req *FetchRequest) (*models.FetchResult, error) {
	req.Normalize()
	opts := req.Options
	seq := req.SequenceNumber

	// Shared links can arrive scheme-less; yt-dlp wants a full URL.
	url := req.Item.SourceURL
	if !strings.Contains(url, "://") && req.Item.Shortcode != "" {
		url = instagram.ReelURL(req.Item.Shortcode)
	}

	itemDir, err := workspace.EnsureItemDir(req.SessionDir, seq)
	if err != nil {
		return nil, err
	}
	result := models.NewFetchResult(itemDir)

	req.OnProgress(url, downloadBandFloor, "Downloading with yt-dlp...")

	videoPath := filepath.Join(itemDir, workspace.VideoName(seq, "mp4"))
	needVideo := opts.NeedsVideo()

	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		NoPlaylist().
		Format(e.format).
		Output(videoPath)
	if !needVideo {
		// Metadata-only run: caption and thumbnail come from the
		// extracted info, no bytes hit the disk.
		dl.SkipDownload()
	}

	last := downloadBandFloor
	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes <= 0 {
			return
		}
		fraction := float64(update.DownloadedBytes) / float64(update.TotalBytes)
		percent := downloadBandFloor + int(fraction*float64(downloadBandCeil-downloadBandFloor))
		if percent > downloadBandCeil {
			percent = downloadBandCeil
		}
		if percent > last {
			last = percent
			req.OnProgress(url, percent, "Downloading with yt-dlp...")
		}
	})

	run, err := dl.Run(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrorTypeEngine, "yt-dlp failed", err)
	}

	info := firstExtractedInfo(run)

	if needVideo {
		videoPath, err = e.locateVideo(videoPath, info)
		if err != nil {
			return nil, err
		}
		if opts.Video {
			result.VideoPath = videoPath
			result.MarkProduced(models.ArtifactVideo)
		}
	}

	result.Title = titleFromInfo(info, seq)

	if opts.Thumbnail {
		e.fetchThumbnail(ctx, info, itemDir, seq, result)
	}
	if opts.Caption {
		e.writeCaption(info, itemDir, seq, result)
	}
	if opts.Audio {
		req.OnProgress(url, 60, "Extracting audio...")
		e.extractAudio(ctx, videoPath, itemDir, seq, result)
	}

	req.OnProgress(url, 100, "Completed")
	return result, nil
}

// locateVideo confirms the download landed where we asked. Restricted
// filenames or a format fallback can shift the path, in which case yt-dlp's
// own report of what it wrote wins.
func (e *YtDlpEngine) locateVideo(videoPath string, info *ytdlp.ExtractedInfo) (string, error) {
	if _, err := os.Stat(videoPath); err == nil {
		return videoPath, nil
	}
	if info != nil && info.Filename != nil && *info.Filename != "" {
		reported := *info.Filename
		if _, err := os.Stat(reported); err == nil {
			e.log.WithFields(map[string]interface{}{
				"requested": videoPath,
				"actual":    reported,
			}).Debug("video landed under yt-dlp's own name")
			return reported, nil
		}
	}
	return "", errors.New(errors.ErrorTypeEngine, "yt-dlp reported success but wrote no video file")
}

func (e *YtDlpEngine) fetchThumbnail(ctx context.Context, info *ytdlp.ExtractedInfo, itemDir string, seq int, result *models.FetchResult) {
	thumbURL := ""
	if info != nil && info.Thumbnail != nil {
		thumbURL = *info.Thumbnail
	}
	if thumbURL == "" {
		e.log.Warn("No thumbnail URL in yt-dlp metadata, skipping thumbnail")
		result.MarkFailed(models.ArtifactThumbnail)
		return
	}

	thumbPath := filepath.Join(itemDir, workspace.ThumbnailName(seq))
	if _, err := e.client.DownloadTo(ctx, thumbURL, thumbPath); err != nil {
		e.log.WithError(err).Warn("Thumbnail download failed, continuing")
		result.MarkFailed(models.ArtifactThumbnail)
		return
	}
	result.ThumbnailPath = thumbPath
	result.MarkProduced(models.ArtifactThumbnail)
}

func (e *YtDlpEngine) writeCaption(info *ytdlp.ExtractedInfo, itemDir string, seq int, result *models.FetchResult) {
	caption := DefaultCaption
	if info != nil && info.Description != nil && strings.TrimSpace(*info.Description) != "" {
		caption = *info.Description
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

func (e *YtDlpEngine) extractAudio(ctx context.Context, videoPath, itemDir string, seq int, result *models.FetchResult) {
	audioPath := filepath.Join(itemDir, workspace.AudioName(seq))
	if err := e.media.ExtractAudio(ctx, videoPath, audioPath, nil); err != nil {
		e.log.WithError(err).Warn("Audio extraction failed, continuing")
		result.MarkFailed(models.ArtifactAudio)
		return
	}
	result.AudioPath = audioPath
	result.MarkProduced(models.ArtifactAudio)
}

func firstExtractedInfo(run *ytdlp.Result) *ytdlp.ExtractedInfo {
	if run == nil {
		return nil
	}
	infos, err := run.GetExtractedInfo()
	if err != nil || len(infos) == 0 {
		return nil
	}
	return infos[0]
}

func titleFromInfo(info *ytdlp.ExtractedInfo, seq int) string {
	if info != nil && info.Title != nil && *info.Title != "" {
		return *info.Title
	}
	return fmt.Sprintf("Reel %d", seq)
}
