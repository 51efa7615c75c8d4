package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"reelgrab/pkg/auth"
	"reelgrab/pkg/downloader"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/manifest"
	"reelgrab/pkg/models"
	"reelgrab/pkg/ui"
)

var (
	// Fetch command flags
	outputDir       string
	engineName      string
	noVideo         bool
	noThumbnail     bool
	noCaption       bool
	withAudio       bool
	withTranscript  bool
	normalizeText   bool
	transcriberName string
	sessionID       string
	groqAPIKey      string
	notify          bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <url>...",
	Short: "Download one or more Instagram reels",
	Long: `Download Instagram reels or posts by URL.

Each run gets its own timestamped workspace directory under the output base
directory, with one numbered item folder per URL. The preferred engine is
tried first and the other engine takes over automatically when it fails.

Transcription needs either a Groq API key (run 'reelgrab auth set-key') or
a local whisper.cpp install configured in the config file.`,
	Example: `  # Download a single reel
  reelgrab fetch https://www.instagram.com/reel/ABC123/

  # Batch download with audio tracks
  reelgrab fetch --audio https://www.instagram.com/reel/ABC123/ https://www.instagram.com/reel/XYZ789/

  # Transcribe with the LLM cleanup pass
  reelgrab fetch --transcript --normalize-transcript https://www.instagram.com/reel/ABC123/

  # Prefer the native engine and skip the thumbnail
  reelgrab fetch --engine native --no-thumbnail https://www.instagram.com/reel/ABC123/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runFetch(args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for run workspaces (default ./downloads)")
	fetchCmd.Flags().StringVar(&engineName, "engine", "", "preferred download engine (ytdlp, native)")
	fetchCmd.Flags().BoolVar(&noVideo, "no-video", false, "skip the video file")
	fetchCmd.Flags().BoolVar(&noThumbnail, "no-thumbnail", false, "skip the thumbnail")
	fetchCmd.Flags().BoolVar(&noCaption, "no-caption", false, "skip the caption")
	fetchCmd.Flags().BoolVar(&withAudio, "audio", false, "extract an mp3 audio track from the video")
	fetchCmd.Flags().BoolVar(&withTranscript, "transcript", false, "transcribe the audio (implies --audio)")
	fetchCmd.Flags().BoolVar(&normalizeText, "normalize-transcript", false, "clean the transcript with an LLM pass")
	fetchCmd.Flags().StringVar(&transcriberName, "transcriber", "", "transcription backend (groq, local)")
	fetchCmd.Flags().StringVar(&sessionID, "session-id", "", "Instagram session cookie for the native engine")
	fetchCmd.Flags().StringVar(&groqAPIKey, "groq-api-key", "", "Groq API key (overrides the stored key)")
	fetchCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the run finishes")
}

func runFetch(urls []string) {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if engineName != "" {
		flags["engine"] = engineName
	}
	if transcriberName != "" {
		flags["transcriber"] = transcriberName
	}
	if sessionID != "" {
		flags["session-id"] = sessionID
	}
	if groqAPIKey != "" {
		flags["groq-api-key"] = groqAPIKey
	}

	cfg := loadConfig(flags)
	log := newLogger(cfg)
	fillCredentials(cfg, log)

	opts := models.Options{
		Video:               !noVideo,
		Thumbnail:           !noThumbnail,
		Caption:             !noCaption,
		Audio:               withAudio,
		Transcript:          withTranscript,
		NormalizeTranscript: normalizeText,
		PreferredEngine:     models.EngineKind(cfg.Engines.Preferred),
	}.Normalized()

	if opts.PreferredEngine == models.EngineNative && cfg.Instagram.SessionID == "" {
		ui.PrintWarning("Native engine selected without a stored Instagram session, public reels only")
		auth.ShowQuickExtractGuide()
	}

	log.InfoWithFields("Reelgrab starting", map[string]interface{}{
		"version": version,
		"urls":    len(urls),
		"engine":  string(opts.PreferredEngine),
	})

	core, err := downloader.New(cfg, log)
	if err != nil {
		ui.PrintError("Failed to initialize downloader", err.Error())
		os.Exit(1)
	}

	display := ui.NewRunDisplay(len(urls))
	core.SetProgressFunc(display.Progress)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := core.Run(ctx, urls, opts)
	display.Finish(summary)

	if summary != nil {
		saveManifest(opts, summary, log)
	}

	if notify {
		sendRunNotification(summary)
	}

	if runErr != nil {
		log.WithError(runErr).Error("Run aborted")
		ui.PrintError("Run aborted", runErr.Error())
		os.Exit(1)
	}
	if summary != nil && summary.Completed == 0 && summary.Failed > 0 {
		log.ErrorWithFields("All items failed", map[string]interface{}{"failed": summary.Failed})
		os.Exit(1)
	}
}

// saveManifest records the finished run under the user data directory.
// Failures are logged, not fatal: the artifacts on disk are the deliverable.
func saveManifest(opts models.Options, summary *models.RunSummary, log logger.Logger) {
	manager, err := manifest.NewManager(log)
	if err != nil {
		log.WithError(err).Warn("Could not open manifest directory")
		return
	}
	if err := manager.Save(manifest.FromSummary(newRunID(), opts, summary)); err != nil {
		log.WithError(err).Warn("Could not save run manifest")
	}
}

func sendRunNotification(summary *models.RunSummary) {
	notifier := ui.NewNotifier()
	switch {
	case summary == nil:
		notifier.SendError("Reelgrab", "Run aborted before any downloads")
	case summary.Failed == 0:
		notifier.SendSuccess("Reelgrab", fmt.Sprintf("Downloaded %d reel(s)", summary.Completed))
	default:
		notifier.SendError("Reelgrab", fmt.Sprintf("%d of %d reel(s) failed", summary.Failed, summary.Requested))
	}
}

// newRunID returns a sortable unique run identifier.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return id.String()
}
