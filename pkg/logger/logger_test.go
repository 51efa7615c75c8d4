package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"reelgrab/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name: "valid config with info level",
			cfg: &config.LoggingConfig{
				Level: "info",
			},
			wantErr: false,
		},
		{
			name: "valid config with debug level",
			cfg: &config.LoggingConfig{
				Level: "debug",
			},
			wantErr: false,
		},
		{
			name: "invalid log level",
			cfg: &config.LoggingConfig{
				Level: "invalid",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "reelgrab.log")

	logger, err := New(&config.LoggingConfig{Level: "info", File: logFile})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("file output test")

	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("expected log file to exist: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"panic", zerolog.PanicLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"bogus", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if !tt.wantErr && level != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, level, tt.expected)
			}
		})
	}
}

func TestWithFieldChaining(t *testing.T) {
	tl := NewTestLogger()

	tl.WithField("url", "https://example.com").
		WithField("attempt", 2).
		Info("fetch retried")

	messages := tl.GetMessages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	msg := messages[0]
	if msg.Level != "INFO" {
		t.Errorf("expected INFO level, got %s", msg.Level)
	}
	if msg.Fields["url"] != "https://example.com" {
		t.Errorf("expected url field to survive chaining, got %v", msg.Fields)
	}
	if msg.Fields["attempt"] != 2 {
		t.Errorf("expected attempt field to survive chaining, got %v", msg.Fields)
	}
}

func TestWithErrorCapture(t *testing.T) {
	tl := NewTestLogger()

	tl.WithError(os.ErrNotExist).Error("artifact missing")

	if !tl.HasError() {
		t.Error("expected an ERROR message to be captured")
	}
	messages := tl.GetMessagesByLevel("ERROR")
	if len(messages) != 1 || messages[0].Error != os.ErrNotExist {
		t.Errorf("expected the wrapped error to be captured, got %+v", messages)
	}
}

func TestStructuredLogging(t *testing.T) {
	tl := NewTestLogger()

	tl.InfoWithFields("item completed", map[string]interface{}{
		"sequence": 1,
		"status":   "completed",
	})

	if !tl.HasMessage("item completed") {
		t.Error("expected message to be captured")
	}

	messages := tl.GetMessages()
	if messages[0].Fields["sequence"] != 1 {
		t.Errorf("expected sequence field, got %v", messages[0].Fields)
	}
}

func TestTestLoggerClear(t *testing.T) {
	tl := NewTestLogger()
	tl.Info("one")
	tl.Warn("two")

	tl.Clear()

	if len(tl.GetMessages()) != 0 {
		t.Error("expected no messages after Clear")
	}
	if tl.String() != "" {
		t.Error("expected empty buffer after Clear")
	}
}

func TestGlobalLogger(t *testing.T) {
	if err := Initialize(&config.LoggingConfig{Level: "debug"}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil after Initialize")
	}

	// Package-level convenience functions must not panic.
	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	WithField("key", "value").Info("field message")
}
