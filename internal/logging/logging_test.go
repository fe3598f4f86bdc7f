package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Fiddl3/k1-mcu-flasher/internal/config"
)

func TestNewConsoleOnly(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "info"}, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug enabled at info level")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info disabled at info level")
	}
}

func TestNewVerboseForcesDebug(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "error"}, true)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Sync()

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("verbose flag did not force debug level")
	}
}

func TestNewDefaultsToInfo(t *testing.T) {
	logger, err := New(config.LoggingConfig{}, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("empty level should mean info, not debug")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "noisy"}, false)
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
	if !strings.Contains(err.Error(), "noisy") {
		t.Errorf("error = %q, want mention of the bad level", err)
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k1flash.log")
	logger, err := New(config.LoggingConfig{Level: "debug", File: path, MaxSize: 1}, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Sugar().Infow("firmware update complete", "chunks", 10)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	for _, want := range []string{
		`"msg":"firmware update complete"`,
		`"chunks":10`,
		`"timestamp"`,
		`"level":"info"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("log file missing %s, got %s", want, line)
		}
	}
}

func TestAdapterForwards(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewAdapter(zap.New(core))

	adapter.Debug("tx", "len", 2)
	adapter.Info("handshake complete")
	adapter.Error("update aborted", "error", "boom")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	if entries[0].Level != zapcore.DebugLevel || entries[0].Message != "tx" {
		t.Errorf("entry 0 = %s %q", entries[0].Level, entries[0].Message)
	}
	if got := entries[0].ContextMap()["len"]; got != int64(2) {
		t.Errorf("entry 0 len = %v, want 2", got)
	}
	if entries[1].Level != zapcore.InfoLevel || entries[1].Message != "handshake complete" {
		t.Errorf("entry 1 = %s %q", entries[1].Level, entries[1].Message)
	}
	if entries[2].Level != zapcore.ErrorLevel {
		t.Errorf("entry 2 level = %s, want error", entries[2].Level)
	}
	if got := entries[2].ContextMap()["error"]; got != "boom" {
		t.Errorf("entry 2 error = %v, want boom", got)
	}
}
