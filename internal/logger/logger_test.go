package logger_test

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/Tiliavir/hos-tracker/internal/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"warn", "console", false},
		{"debug", "json", false},
		{"info", "", false},
		{"loud", "console", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		l, err := logger.New(tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q, %q) err = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			continue
		}
		if err == nil && l.Logger == nil {
			t.Errorf("New(%q, %q) returned nil zap logger", tt.level, tt.format)
		}
	}
}

func TestNewLevel(t *testing.T) {
	l, err := logger.New("warn", "console")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}
