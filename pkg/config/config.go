package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that YAML files spell in Go duration
// syntax, e.g. "45s" or "2m".
type Duration time.Duration

// MarshalYAML renders the duration as a string like "1m30s".
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML parses Go duration syntax from a YAML scalar.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config holds all configuration options for reelgrab
type Config struct {
	// Download engine selection and behavior
	Engines EnginesConfig `yaml:"engines" json:"engines"`

	// Credentials and headers for the native Instagram client
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Speech-to-text backends
	Transcription TranscriptionConfig `yaml:"transcription" json:"transcription"`

	// Workspace layout
	Output OutputConfig `yaml:"output" json:"output"`

	// Network transfer settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting for the native client
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for retryable transport failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// External media tooling
	Media MediaConfig `yaml:"media" json:"media"`

	// HTTP API server
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// EnginesConfig selects and tunes the two download engines
type EnginesConfig struct {
	// Preferred is the engine tried first: "ytdlp" or "native".
	Preferred   string `yaml:"preferred" json:"preferred"`
	VideoFormat string `yaml:"video_format" json:"video_format"`
}

// InstagramConfig holds Instagram-specific configuration for the native engine
type InstagramConfig struct {
	SessionID  string `yaml:"session_id" json:"session_id"`
	CSRFToken  string `yaml:"csrf_token" json:"csrf_token"`
	UserAgent  string `yaml:"user_agent" json:"user_agent"`
	APIVersion string `yaml:"api_version" json:"api_version"`
}

// TranscriptionConfig holds speech-to-text configuration
type TranscriptionConfig struct {
	// Backend is "groq" or "local".
	Backend       string   `yaml:"backend" json:"backend"`
	GroqAPIKey    string   `yaml:"groq_api_key" json:"groq_api_key"`
	GroqModel     string   `yaml:"groq_model" json:"groq_model"`
	CleanupModels []string `yaml:"cleanup_models" json:"cleanup_models"`
	// MaxUploadMB is the remote backend's upload ceiling; larger audio is
	// re-encoded down before upload.
	MaxUploadMB  float64 `yaml:"max_upload_mb" json:"max_upload_mb"`
	WhisperBin   string  `yaml:"whisper_bin" json:"whisper_bin"`
	WhisperModel string  `yaml:"whisper_model" json:"whisper_model"`
	Language     string  `yaml:"language" json:"language"`
}

// OutputConfig holds workspace directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	WorkspacePrefix   string `yaml:"workspace_prefix" json:"workspace_prefix"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// DownloadConfig holds transfer-specific configuration
type DownloadConfig struct {
	DownloadTimeout Duration `yaml:"download_timeout" json:"download_timeout"`
	MaxFileSize     int64    `yaml:"max_file_size" json:"max_file_size"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds the bounded retry policy for transport failures
type RetryConfig struct {
	MaxAttempts  int      `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64  `yaml:"multiplier" json:"multiplier"`
}

// MediaConfig locates the external media tools
type MediaConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path" json:"ffprobe_path"`
	// AudioBitrate is used when extracting the audio track from a video.
	AudioBitrate string `yaml:"audio_bitrate" json:"audio_bitrate"`
}

// ServerConfig holds the HTTP API server configuration
type ServerConfig struct {
	Address         string   `yaml:"address" json:"address"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engines: EnginesConfig{
			Preferred:   "ytdlp",
			VideoFormat: "best[ext=mp4]/best",
		},
		Instagram: InstagramConfig{
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			APIVersion: "v1",
		},
		Transcription: TranscriptionConfig{
			Backend:   "groq",
			GroqModel: "whisper-large-v3",
			CleanupModels: []string{
				"meta-llama/llama-4-scout-17b-16e-instruct",
				"llama-3.3-70b-versatile",
				"llama-3.1-8b-instant",
			},
			MaxUploadMB:  24.5,
			WhisperBin:   "whisper-cli",
			WhisperModel: "",
			Language:     "",
		},
		Output: OutputConfig{
			BaseDirectory:     "./downloads",
			WorkspacePrefix:   "session_",
			OverwriteExisting: false,
		},
		Download: DownloadConfig{
			DownloadTimeout: Duration(120 * time.Second),
			MaxFileSize:     0, // 0 means no limit
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: Duration(2 * time.Second),
			MaxDelay:     Duration(30 * time.Second),
			Multiplier:   2.0,
		},
		Media: MediaConfig{
			FFmpegPath:   "ffmpeg",
			FFprobePath:  "ffprobe",
			AudioBitrate: "192k",
		},
		Server: ServerConfig{
			Address:         ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if sessionID := os.Getenv("REELGRAB_SESSION_ID"); sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken := os.Getenv("REELGRAB_CSRF_TOKEN"); csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if userAgent := os.Getenv("REELGRAB_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}

	if engine := os.Getenv("REELGRAB_PREFERRED_ENGINE"); engine != "" {
		c.Engines.Preferred = engine
	}

	if backend := os.Getenv("REELGRAB_TRANSCRIPTION_BACKEND"); backend != "" {
		c.Transcription.Backend = backend
	}
	// The plain GROQ_API_KEY name is the one the Groq tooling ecosystem uses.
	if key := os.Getenv("REELGRAB_GROQ_API_KEY"); key != "" {
		c.Transcription.GroqAPIKey = key
	} else if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Transcription.GroqAPIKey = key
	}
	if bin := os.Getenv("REELGRAB_WHISPER_BIN"); bin != "" {
		c.Transcription.WhisperBin = bin
	}
	if model := os.Getenv("REELGRAB_WHISPER_MODEL"); model != "" {
		c.Transcription.WhisperModel = model
	}

	if outputDir := os.Getenv("REELGRAB_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if rpm := os.Getenv("REELGRAB_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if addr := os.Getenv("REELGRAB_SERVER_ADDR"); addr != "" {
		c.Server.Address = addr
	}

	if logLevel := os.Getenv("REELGRAB_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".reelgrab.yaml",
		".reelgrab.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "reelgrab", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "reelgrab", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".reelgrab.yaml"),
		filepath.Join(os.Getenv("HOME"), ".reelgrab.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch c.Engines.Preferred {
	case "ytdlp", "native":
	default:
		errs = append(errs, errors.New("preferred engine must be \"ytdlp\" or \"native\""))
	}

	switch c.Transcription.Backend {
	case "groq", "local":
	default:
		errs = append(errs, errors.New("transcription backend must be \"groq\" or \"local\""))
	}
	if c.Transcription.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("transcription upload ceiling must be positive"))
	}

	if c.Instagram.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.WorkspacePrefix == "" {
		errs = append(errs, errors.New("workspace prefix is required"))
	}

	if c.Media.FFmpegPath == "" {
		errs = append(errs, errors.New("ffmpeg path is required"))
	}
	if c.Media.FFprobePath == "" {
		errs = append(errs, errors.New("ffprobe path is required"))
	}

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server address is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if engine, ok := flags["engine"].(string); ok && engine != "" {
		c.Engines.Preferred = engine
	}
	if backend, ok := flags["transcriber"].(string); ok && backend != "" {
		c.Transcription.Backend = backend
	}
	if key, ok := flags["groq-api-key"].(string); ok && key != "" {
		c.Transcription.GroqAPIKey = key
	}
	if sessionID, ok := flags["session-id"].(string); ok && sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Address = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".reelgrab.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
