// Package logger builds the zap loggers used by the server and the client.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig controls the optional rotated log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger wraps a zap logger that can be re-initialized with a new level.
type Logger struct {
	Log  *zap.Logger
	file FileConfig
}

// New returns a Logger that discards everything until Init is called.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// WithFile makes Init also write to a size-rotated file.
func (l *Logger) WithFile(cfg FileConfig) *Logger {
	l.file = cfg
	return l
}

// ParseLevel converts a level name such as "info" or "Debug" to a zap level.
func ParseLevel(level string) (zap.AtomicLevel, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return lvl, nil
}

// Init builds the underlying logger at the given level. Output goes to stderr
// as JSON and, when a file path is configured, to the rotated file as well.
func (l *Logger) Init(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), lvl),
	}
	if l.file.Path != "" {
		if err := os.MkdirAll(filepath.Dir(l.file.Path), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   l.file.Path,
			MaxSize:    orDefault(l.file.MaxSizeMB, 50),
			MaxBackups: orDefault(l.file.MaxBackups, 5),
			MaxAge:     orDefault(l.file.MaxAgeDays, 30),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), lvl))
	}

	l.Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
