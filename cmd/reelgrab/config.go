package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"reelgrab/pkg/config"
	"reelgrab/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage reelgrab configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (REELGRAB_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'reelgrab.yaml'
unless a different path is specified with the --config flag.`,
	Args: cobra.NoArgs,
	Run:  runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration merged from all sources.

Sensitive values like session cookies and API keys are masked.`,
	Args: cobra.NoArgs,
	Run:  runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values,
and warn about missing credentials.`,
	Args: cobra.NoArgs,
	Run:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "reelgrab.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# Reelgrab Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with REELGRAB_
# For example: REELGRAB_GROQ_API_KEY, REELGRAB_SESSION_ID

# Download engine selection
engines:
  # Engine tried first: "ytdlp" or "native".
  # The other engine is used automatically as a fallback.
  preferred: "ytdlp"

  # yt-dlp format selector for the video file
  video_format: "best[ext=mp4]/best"

# Credentials for the native engine (optional for public reels).
# Prefer 'reelgrab auth set-session' over putting cookies in this file.
instagram:
  session_id: ""
  csrf_token: ""
  # Leave empty to use the default browser user agent
  user_agent: ""

# Speech-to-text configuration
transcription:
  # Backend: "groq" (remote Whisper API) or "local" (whisper.cpp CLI)
  backend: "groq"

  # Groq API key. Prefer 'reelgrab auth set-key' over this file.
  groq_api_key: ""

  # Whisper model used by the Groq backend
  groq_model: "whisper-large-v3"

  # Audio above this size is re-encoded before upload
  max_upload_mb: 24.5

  # whisper.cpp binary and ggml model for the local backend
  whisper_bin: "whisper-cli"
  whisper_model: ""

  # Spoken language hint, empty for auto-detection
  language: ""

# Workspace layout
output:
  # Base directory for run workspaces
  base_directory: "./downloads"

  # Each run creates <base_directory>/<prefix><timestamp>/
  workspace_prefix: "session_"

# Network transfer settings
download:
  # Per-request timeout
  download_timeout: 2m

# Rate limiting for the native engine
rate_limit:
  requests_per_minute: 60
  burst_size: 10

# Retry policy for retryable transport failures
retry:
  max_attempts: 3
  initial_delay: 2s
  max_delay: 30s
  multiplier: 2.0

# ffmpeg/ffprobe used for audio extraction and re-encoding
media:
  ffmpeg_path: "ffmpeg"
  ffprobe_path: "ffprobe"
  audio_bitrate: "192k"

# HTTP API server ('reelgrab serve')
server:
  address: ":8080"
  shutdown_timeout: 10s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path, empty logs to stderr only
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your Groq API key with 'reelgrab auth set-key'")
	fmt.Println("2. Run 'reelgrab config validate' to check the configuration")
	fmt.Println("3. Start downloading with 'reelgrab fetch <url>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)

	// Mask sensitive values for display
	displayCfg := *cfg
	displayCfg.Instagram.SessionID = maskSecret(displayCfg.Instagram.SessionID)
	displayCfg.Instagram.CSRFToken = maskSecret(displayCfg.Instagram.CSRFToken)
	displayCfg.Transcription.GroqAPIKey = maskSecret(displayCfg.Transcription.GroqAPIKey)

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (REELGRAB_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		// Try to find config file in common locations
		possiblePaths := []string{
			"reelgrab.yaml",
			"reelgrab.yml",
			".reelgrab.yaml",
			filepath.Join(os.Getenv("HOME"), ".reelgrab.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "reelgrab", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	// Load runs the full validation pass
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	var warnings []string
	if cfg.Transcription.Backend == "groq" && cfg.Transcription.GroqAPIKey == "" {
		warnings = append(warnings, "no Groq API key configured; transcription will be skipped unless a key is stored via 'reelgrab auth set-key'")
	}
	if cfg.Transcription.Backend == "local" && cfg.Transcription.WhisperModel == "" {
		warnings = append(warnings, "local backend selected but whisper_model is not set")
	}
	if cfg.Instagram.SessionID == "" {
		warnings = append(warnings, "no Instagram session configured; the native engine only works for public content")
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Preferred engine: %s\n", cfg.Engines.Preferred)
	fmt.Printf("  Transcription backend: %s\n", cfg.Transcription.Backend)
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

// maskSecret masks all but the edges of a secret for display
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
