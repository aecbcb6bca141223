package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig = Config{}
	isInitialized = false
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"v4l2":    "debug",
			"hotplug": "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"v4l2", true, true, true},
		{"hotplug", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()

			if got := handler.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(context.Background(), slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(context.Background(), slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	loggerBefore := GetLogger("capture")
	handlerBefore := loggerBefore.Handler()

	if handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should not have debug enabled")
	}

	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"capture": "debug"},
	})

	loggerAfter := GetLogger("capture")
	if loggerBefore != loggerAfter {
		t.Error("logger should be cached across Initialize")
	}
	if !handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("cached logger should pick up the new level after Initialize")
	}
}

func TestTeeHandlerWritesOnce(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(newTeeHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("debug message written %d times, want 1. Output: %s", count, output)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			}
			if *got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}
