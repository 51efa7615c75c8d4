// Package logger provides a structured logging interface for reelgrab.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors
// - File output alongside the console stream
// - Context support for request tracing
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "reelgrab/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File: "/var/log/reelgrab.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Run started")
//	logger.WithField("url", itemURL).Info("Item accepted")
//	logger.WithError(err).Error("Failed to fetch video")
//
// Advanced Usage:
//
//	// Create a logger instance with fields
//	log := logger.GetLogger().
//	    WithField("component", "engine").
//	    WithField("run_id", runID)
//
//	// Use structured logging
//	log.InfoWithFields("Fetch completed", map[string]interface{}{
//	    "file": "video1.mp4",
//	    "size": 1024000,
//	    "duration": time.Second * 5,
//	})
package logger
