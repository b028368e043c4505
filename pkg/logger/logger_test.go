package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLogLevel(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLogLevel(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "verbose"}); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestGetLoggerFallback(t *testing.T) {
	defaultMu.Lock()
	defaultLogger = nil
	defaultMu.Unlock()

	l := GetLogger()
	if l == nil {
		t.Fatal("GetLogger returned nil")
	}
	// Field chaining must not panic and returns a derived logger.
	derived := l.WithField("phone", "+12025550123").WithFields(map[string]interface{}{"run": 1})
	if derived == nil {
		t.Fatal("derived logger is nil")
	}
	derived.Info("fallback logger works")
}

func TestInitializeWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tgranger.log")

	if err := Initialize(&Config{Level: "debug", File: path}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	GetLogger().WithField("test", true).Info("file output works")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Log file is empty")
	}
}

func TestWithErrorNil(t *testing.T) {
	l := GetLogger()
	if got := l.WithError(nil); got != l {
		t.Error("WithError(nil) should return the receiver unchanged")
	}
}
