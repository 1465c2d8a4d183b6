// Package logging builds the process-wide zap logger. The chat UI owns the
// terminal, so output goes to a file (or stderr), never stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rexolve-ai/rexolve/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogPath returns ~/.local/share/rexolve/rexolve.log.
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "rexolve", "rexolve.log"), nil
}

// New returns a JSON logger configured from cfg. An empty File means
// DefaultLogPath; "stderr" logs to stderr.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Level != "" {
		l, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	out := cfg.File
	if out == "" {
		p, err := DefaultLogPath()
		if err != nil {
			return nil, err
		}
		out = p
	}
	if out != "stderr" && out != "stdout" {
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return nil, fmt.Errorf("cannot create log directory: %w", err)
		}
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Sampling = nil
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}

	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}
