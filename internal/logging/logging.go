// Package logging builds the zap logger used by the k1flash command and
// adapts it to the interface the bootloader package logs through.
package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Fiddl3/k1-mcu-flasher/bootloader"
	"github.com/Fiddl3/k1-mcu-flasher/internal/config"
)

// New builds the tool logger. Human-readable output goes to stderr so it
// stays clear of command output on stdout. When cfg.File is set, a JSON
// core writes the same entries there through a rotating file so flash
// sessions on a printer board can be diagnosed after the fact.
//
// verbose forces the debug level regardless of cfg.Level.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	consoleEnc := zap.NewDevelopmentEncoderConfig()
	consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEnc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEnc),
		zapcore.Lock(os.Stderr),
		level,
	)

	if cfg.File == "" {
		return zap.New(console), nil
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.TimeKey = "timestamp"
	fileEnc.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	fileEnc.EncodeLevel = zapcore.LowercaseLevelEncoder

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	file := zapcore.NewCore(
		zapcore.NewJSONEncoder(fileEnc),
		zapcore.AddSync(rotator),
		level,
	)

	return zap.New(zapcore.NewTee(console, file)), nil
}

// Adapter exposes a zap logger through the bootloader.Logger interface.
type Adapter struct {
	sugar *zap.SugaredLogger
}

var _ bootloader.Logger = (*Adapter)(nil)

// NewAdapter wraps logger for use with bootloader.WithLogger.
func NewAdapter(logger *zap.Logger) *Adapter {
	return &Adapter{sugar: logger.Sugar()}
}

// Debug implements bootloader.Logger.
func (a *Adapter) Debug(msg string, keysAndValues ...interface{}) {
	a.sugar.Debugw(msg, keysAndValues...)
}

// Info implements bootloader.Logger.
func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	a.sugar.Infow(msg, keysAndValues...)
}

// Error implements bootloader.Logger.
func (a *Adapter) Error(msg string, keysAndValues ...interface{}) {
	a.sugar.Errorw(msg, keysAndValues...)
}
