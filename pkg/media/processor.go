package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelgrab/pkg/config"
	"reelgrab/pkg/errors"
	"reelgrab/pkg/logger"
)

// ffmpeg invocation constants.
const (
	ffprobeLogLevel     = "error"
	ffprobeShowEntries  = "format=duration"
	ffprobeOutputFormat = "csv=p=0"
	progressPipeTarget  = "pipe:1"
	progressTimePrefix  = "out_time_us="

	compressedPrefix = "compressed_"

	// Bitrate bounds for constrained re-encodes, in kbps. Below 32 speech
	// becomes unintelligible; above 128 the size win disappears.
	minBitrateKbps     = 32
	maxBitrateKbps     = 128
	defaultBitrateKbps = 64
)

// Processor shells out to ffmpeg and ffprobe for audio work: extracting the
// soundtrack from a fetched video and shrinking audio files that exceed an
// upload ceiling.
type Processor struct {
	ffmpegPath   string
	ffprobePath  string
	audioBitrate string
	log          logger.Logger
}

// NewProcessor creates a media processor using the configured binary paths.
func NewProcessor(cfg *config.MediaConfig, log logger.Logger) *Processor {
	return &Processor{
		ffmpegPath:   cfg.FFmpegPath,
		ffprobePath:  cfg.FFprobePath,
		audioBitrate: cfg.AudioBitrate,
		log:          log,
	}
}

// Available reports whether the ffmpeg binary can be found. Callers skip
// audio extraction rather than fail the item when it is missing.
func (p *Processor) Available() bool {
	_, err := exec.LookPath(p.ffmpegPath)
	return err == nil
}

// ExtractAudio pulls the audio track out of videoPath into an mp3 at
// audioPath. onProgress, if non-nil, receives 0..100 as ffmpeg advances.
func (p *Processor) ExtractAudio(ctx context.Context, videoPath, audioPath string, onProgress func(percent int)) error {
	if _, err := os.Stat(videoPath); err != nil {
		return errors.Wrap(errors.ErrorTypeWorkspace, "video file not found for audio extraction", err)
	}

	duration, err := p.Duration(ctx, videoPath)
	if err != nil {
		// Extraction still works without a duration; only progress
		// reporting degrades.
		p.log.WarnWithFields("Could not probe video duration", map[string]interface{}{
			"video": videoPath,
			"error": err.Error(),
		})
		duration = 0
	}

	args := p.extractArgs(videoPath, audioPath)
	if err := p.runFFmpeg(ctx, args, duration, onProgress); err != nil {
		os.Remove(audioPath)
		return err
	}
	return nil
}

// extractArgs builds the ffmpeg arguments for soundtrack extraction.
func (p *Processor) extractArgs(videoPath, audioPath string) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", p.audioBitrate,
		"-progress", progressPipeTarget,
		"-nostats",
		audioPath,
	}
}

// Duration returns the duration of a media file in seconds using ffprobe.
func (p *Processor) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", ffprobeLogLevel,
		"-show_entries", ffprobeShowEntries,
		"-of", ffprobeOutputFormat,
		path)
	output, err := cmd.Output()
	if err != nil {
		return 0, errors.Wrap(errors.ErrorTypeUnknown, "failed to run ffprobe", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrorTypeParsing, "failed to parse ffprobe duration", err)
	}

	return duration, nil
}

// TargetBitrate computes the mp3 bitrate in kbps that fits maxSizeMB of
// audio into durationSeconds, clamped to the intelligibility bounds. A
// non-positive duration yields the default bitrate.
func TargetBitrate(maxSizeMB, durationSeconds float64) int {
	if durationSeconds <= 0 {
		return defaultBitrateKbps
	}
	kbps := int(maxSizeMB * 8192 / durationSeconds)
	if kbps < minBitrateKbps {
		return minBitrateKbps
	}
	if kbps > maxBitrateKbps {
		return maxBitrateKbps
	}
	return kbps
}

// ReencodeForUpload shrinks audioPath below maxSizeMB by re-encoding to mono
// mp3 at a reduced bitrate. Files already under the ceiling are returned
// unchanged. When re-encoding fails the original path is returned so the
// caller can still attempt the upload.
func (p *Processor) ReencodeForUpload(ctx context.Context, audioPath string, maxSizeMB float64) (string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeWorkspace, "audio file not found", err)
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB <= maxSizeMB {
		return audioPath, nil
	}

	duration, err := p.Duration(ctx, audioPath)
	if err != nil {
		duration = 0
	}
	kbps := TargetBitrate(maxSizeMB, duration)

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	outPath := filepath.Join(filepath.Dir(audioPath), compressedPrefix+stem+".mp3")

	p.log.InfoWithFields("Re-encoding oversized audio", map[string]interface{}{
		"audio":   audioPath,
		"size_mb": fmt.Sprintf("%.1f", sizeMB),
		"max_mb":  maxSizeMB,
		"bitrate": fmt.Sprintf("%dk", kbps),
	})

	args := p.reencodeArgs(audioPath, outPath, kbps)
	if err := p.runFFmpeg(ctx, args, duration, nil); err != nil {
		// Best effort: hand back the original and let the upload decide.
		p.log.WarnWithFields("Audio re-encode failed, using original file", map[string]interface{}{
			"audio": audioPath,
			"error": err.Error(),
		})
		return audioPath, nil
	}

	return outPath, nil
}

// reencodeArgs builds the ffmpeg arguments for a constrained mono re-encode.
func (p *Processor) reencodeArgs(inPath, outPath string, kbps int) []string {
	return []string{
		"-y",
		"-i", inPath,
		"-vn",
		"-ac", "1",
		"-b:a", fmt.Sprintf("%dk", kbps),
		"-progress", progressPipeTarget,
		"-nostats",
		outPath,
	}
}

// ConvertToWav transcodes audioPath into 16 kHz mono PCM WAV at wavPath,
// the only layout whisper.cpp ingests.
func (p *Processor) ConvertToWav(ctx context.Context, audioPath, wavPath string) error {
	if _, err := os.Stat(audioPath); err != nil {
		return errors.Wrap(errors.ErrorTypeWorkspace, "audio file not found for wav conversion", err)
	}
	if err := p.runFFmpeg(ctx, p.wavArgs(audioPath, wavPath), 0, nil); err != nil {
		os.Remove(wavPath)
		return err
	}
	return nil
}

// wavArgs builds the ffmpeg arguments for the PCM conversion.
func (p *Processor) wavArgs(audioPath, wavPath string) []string {
	return []string{
		"-y",
		"-i", audioPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		wavPath,
	}
}

// runFFmpeg executes ffmpeg with the given arguments, streaming progress
// lines from stdout when a total duration and callback are available.
func (p *Processor) runFFmpeg(ctx context.Context, args []string, totalDuration float64, onProgress func(percent int)) error {
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "failed to create ffmpeg stdout pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "failed to start ffmpeg", err)
	}

	monitorProgress(stdout, totalDuration, onProgress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrorTypeUnknown, "ffmpeg exited with an error", err)
	}
	return nil
}

// monitorProgress parses out_time_us= lines from ffmpeg's -progress stream
// and converts them to a percentage of the total duration.
func monitorProgress(r io.Reader, totalDuration float64, onProgress func(percent int)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, progressTimePrefix) {
			continue
		}
		if totalDuration <= 0 || onProgress == nil {
			continue
		}

		timeStr := strings.TrimPrefix(line, progressTimePrefix)
		timeMicroseconds, err := strconv.ParseInt(timeStr, 10, 64)
		if err != nil {
			continue
		}

		timeSeconds := float64(timeMicroseconds) / 1000000.0
		progress := timeSeconds / totalDuration
		if progress > 1.0 {
			progress = 1.0
		}
		onProgress(int(progress * 100))
	}
}
