package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelgrab/pkg/config"
	"reelgrab/pkg/errors"
	"reelgrab/pkg/logger"
)

func testProcessor() *Processor {
	cfg := &config.MediaConfig{
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		AudioBitrate: "192k",
	}
	return NewProcessor(cfg, logger.NewNopLogger())
}

func TestTargetBitrate(t *testing.T) {
	tests := []struct {
		name     string
		maxMB    float64
		duration float64
		want     int
	}{
		{"short clip clamps high", 24.5, 60, 128},
		{"long recording clamps low", 24.5, 7200, 32},
		{"mid range unclamped", 24.5, 3000, 66},
		{"exact low bound", 24.5, 24.5 * 8192 / 32, 32},
		{"zero duration falls back", 24.5, 0, 64},
		{"negative duration falls back", 24.5, -1, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TargetBitrate(tt.maxMB, tt.duration))
		})
	}
}

func TestExtractArgs(t *testing.T) {
	p := testProcessor()

	args := p.extractArgs("/w/item1/video1.mp4", "/w/item1/audio1.mp3")

	assert.Equal(t, "-y", args[0])
	assert.Contains(t, args, "-vn")
	assert.Contains(t, args, "libmp3lame")
	assert.Contains(t, args, "192k")
	assert.Equal(t, "/w/item1/audio1.mp3", args[len(args)-1])

	// Progress goes to stdout so stderr stays readable for diagnostics.
	assert.Contains(t, args, "-progress")
	assert.Contains(t, args, "pipe:1")
}

func TestReencodeArgs(t *testing.T) {
	p := testProcessor()

	args := p.reencodeArgs("/w/audio1.mp3", "/w/compressed_audio1.mp3", 48)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-ac 1", "re-encode must downmix to mono")
	assert.Contains(t, joined, "-b:a 48k")
	assert.Equal(t, "/w/compressed_audio1.mp3", args[len(args)-1])
}

func TestWavArgs(t *testing.T) {
	p := testProcessor()

	args := p.wavArgs("/w/audio1.mp3", "/w/audio1.wav")

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-ar 16000")
	assert.Contains(t, joined, "-ac 1")
	assert.Contains(t, joined, "pcm_s16le")
	assert.Equal(t, "/w/audio1.wav", args[len(args)-1])
}

func TestConvertToWavMissingInput(t *testing.T) {
	p := testProcessor()

	err := p.ConvertToWav(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), "/w/out.wav")
	require.Error(t, err)
	assert.True(t, errors.IsWorkspaceError(err))
}

func TestMonitorProgress(t *testing.T) {
	input := strings.Join([]string{
		"frame=10",
		"out_time_us=5000000",
		"out_time_us=not-a-number",
		"out_time_us=10000000",
		"out_time_us=30000000", // past the end, must cap at 100
		"progress=end",
	}, "\n")

	var got []int
	monitorProgress(strings.NewReader(input), 20.0, func(percent int) {
		got = append(got, percent)
	})

	assert.Equal(t, []int{25, 50, 100}, got)
}

func TestMonitorProgressNoDuration(t *testing.T) {
	called := false
	monitorProgress(strings.NewReader("out_time_us=5000000\n"), 0, func(int) {
		called = true
	})
	assert.False(t, called, "no callbacks without a known duration")
}

func TestExtractAudioMissingVideo(t *testing.T) {
	p := testProcessor()

	err := p.ExtractAudio(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "out.mp3", nil)
	require.Error(t, err)
	assert.True(t, errors.IsWorkspaceError(err))
}

func TestReencodeForUploadUnderLimit(t *testing.T) {
	p := testProcessor()

	// A file already below the ceiling is handed back untouched, without
	// ever invoking ffmpeg.
	path := filepath.Join(t.TempDir(), "audio1.mp3")
	require.NoError(t, os.WriteFile(path, []byte("small"), 0644))

	out, err := p.ReencodeForUpload(context.Background(), path, 24.5)
	require.NoError(t, err)
	assert.Equal(t, path, out)
}

func TestReencodeForUploadMissingFile(t *testing.T) {
	p := testProcessor()

	_, err := p.ReencodeForUpload(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), 24.5)
	require.Error(t, err)
	assert.True(t, errors.IsWorkspaceError(err))
}
