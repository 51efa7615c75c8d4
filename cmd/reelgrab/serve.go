package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelgrab/internal/api"
	"reelgrab/internal/runner"
	"reelgrab/pkg/downloader"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/manifest"
	"reelgrab/pkg/ui"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server for queueing downloads from other tools.

Jobs are processed one at a time by a background worker. Endpoints:

  POST /api/v1/downloads        submit URLs, returns a job id
  GET  /api/v1/downloads/{id}   job status with per-item results
  POST /api/v1/validate         check URLs without downloading
  GET  /healthz                 liveness and queue depth

Every finished job is recorded as a run manifest under the user data
directory.`,
	Example: `  # Listen on the default address (:8080)
  reelgrab serve

  # Listen on a specific port
  reelgrab serve --addr 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runServe()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")
}

func runServe() {
	flags := make(map[string]interface{})
	if serveAddr != "" {
		flags["addr"] = serveAddr
	}

	cfg := loadConfig(flags)
	log := newLogger(cfg)
	fillCredentials(cfg, log)

	core, err := downloader.New(cfg, log)
	if err != nil {
		ui.PrintError("Failed to initialize downloader", err.Error())
		os.Exit(1)
	}

	manifests, err := manifest.NewManager(log)
	if err != nil {
		log.WithError(err).Warn("Run manifests disabled")
		manifests = nil
	}

	jobs := runner.New(core, manifests, log)
	jobs.Start()
	go logEvents(jobs, log)

	server := api.NewServer(&cfg.Server, jobs, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoWithFields("Server starting", map[string]interface{}{"address": cfg.Server.Address})
	ui.PrintInfo("Listening on", cfg.Server.Address)

	err = server.Start(ctx)

	// Let the in-flight job finish before exiting.
	jobs.Stop()

	if err != nil {
		ui.PrintError("Server failed", err.Error())
		os.Exit(1)
	}
	log.Info("Server stopped")
	ui.PrintSuccess("Server stopped")
}

// logEvents drains the runner's event stream into the log so the bounded
// channel never fills up. Runs until Stop closes the stream.
func logEvents(jobs *runner.Runner, log logger.Logger) {
	for event := range jobs.Events() {
		switch event.Type {
		case runner.EventRunStarted:
			log.InfoWithFields("Job started", map[string]interface{}{
				"job_id": event.JobID,
			})
		case runner.EventProgress:
			log.DebugWithFields("Job progress", map[string]interface{}{
				"job_id":  event.JobID,
				"url":     event.URL,
				"percent": event.Percent,
				"message": event.Message,
			})
		case runner.EventItemFinished:
			if event.Item == nil {
				continue
			}
			log.InfoWithFields("Item finished", map[string]interface{}{
				"job_id": event.JobID,
				"url":    event.Item.SourceURL,
				"status": string(event.Item.Status),
			})
		case runner.EventRunFinished:
			fields := map[string]interface{}{"job_id": event.JobID}
			if event.Summary != nil {
				fields["completed"] = event.Summary.Completed
				fields["failed"] = event.Summary.Failed
			}
			if event.Error != "" {
				fields["error"] = event.Error
			}
			log.InfoWithFields("Job finished", fields)
		}
	}
}
