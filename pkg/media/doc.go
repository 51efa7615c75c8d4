// Package media wraps the ffmpeg and ffprobe binaries for audio work.
//
// It extracts the soundtrack from downloaded videos, probes media duration,
// and re-encodes audio files that exceed an upload size ceiling down to a
// mono mp3 at a computed bitrate. Progress from long-running ffmpeg calls is
// parsed from the -progress stream and surfaced as a percentage.
//
// All operations shell out; nothing here links against ffmpeg. When the
// binaries are missing, callers are expected to degrade (skip audio
// extraction) rather than fail an entire download.
package media
