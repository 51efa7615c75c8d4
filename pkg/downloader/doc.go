// Package downloader is the orchestration core: it turns a list of reel
// URLs into workspace artifacts by driving the two download engines with a
// fixed fallback swap and an optional transcription stage.
//
// One Downloader handles one run at a time. Items are processed strictly in
// request order, a failed item never stops the batch, and per-item progress
// percents are non-decreasing even across the engine/transcription boundary.
package downloader
