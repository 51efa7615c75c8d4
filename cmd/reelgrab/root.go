package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"reelgrab/pkg/auth"
	"reelgrab/pkg/config"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reelgrab",
	Short: "Download Instagram reels with audio extraction and transcription",
	Long: `Reelgrab is a command-line tool for downloading Instagram reels and posts.

Features:
  - Two download engines (yt-dlp and a native web client) with automatic fallback
  - Optional mp3 audio extraction from downloaded videos
  - Speech-to-text via Groq Whisper or a local whisper.cpp binary
  - Optional LLM cleanup pass over raw transcripts
  - Secure credential storage using the system keychain
  - Batch runs recorded as JSON manifests
  - An HTTP API server for queueing downloads from other tools`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.EnableColors(false)
		} else {
			ui.AutoDetectColors()
		}

		// Don't show logo for certain commands
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.reelgrab.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Version template
	rootCmd.SetVersionTemplate(`Reelgrab {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig builds the effective configuration for a command from the
// persistent flags plus any command-specific overrides.
func loadConfig(flags map[string]interface{}) *config.Config {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	return cfg
}

// newLogger initializes the process logger from config.
func newLogger(cfg *config.Config) logger.Logger {
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	return log
}

// fillCredentials backfills secrets from the credential store when the
// config and environment left them empty. Failures are non-fatal: the run
// proceeds and the component that needed the secret reports it.
func fillCredentials(cfg *config.Config, log logger.Logger) {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Debug("Credential store unavailable")
		return
	}

	if cfg.Instagram.SessionID == "" {
		if creds, err := manager.RetrieveSession(); err == nil {
			cfg.Instagram.SessionID = creds.SessionID
			cfg.Instagram.CSRFToken = creds.CSRFToken
			if creds.UserAgent != "" {
				cfg.Instagram.UserAgent = creds.UserAgent
			}
			log.Debug("Loaded Instagram session from credential store")
		}
	}

	if cfg.Transcription.GroqAPIKey == "" {
		if key, err := manager.RetrieveAPIKey(auth.ProfileGroq); err == nil {
			cfg.Transcription.GroqAPIKey = key
			log.Debug("Loaded Groq API key from credential store")
		}
	}
}
