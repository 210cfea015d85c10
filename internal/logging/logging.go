// Package logging sets up the zap logger used across chatstream.
//
// Logs go to a rotating file, never to the terminal, so they cannot corrupt
// the chat view or the streamed answer on stdout.
package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/diogo/chatstream/internal/config"
)

const (
	maxLogSizeMB  = 5
	maxLogBackups = 5
	maxLogAgeDays = 14
)

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// Init builds a file-backed logger from cfg and installs it as the package default.
// On error the installed default is left alone and a no-op logger is returned.
func Init(cfg config.Config) (*zap.Logger, error) {
	logPath, err := config.GetLogPath(cfg)
	if err != nil {
		return zap.NewNop(), err
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return zap.NewNop(), err
	}

	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}

	logger := New(zapcore.AddSync(writer), cfg.LogFormat, cfg.LogLevel)
	global.Store(logger)
	return logger, nil
}

// New builds a logger writing to out.
func New(out zapcore.WriteSyncer, format, level string) *zap.Logger {
	core := zapcore.NewCore(newEncoder(format), out, ParseLevel(level))
	return zap.New(core).With(zap.Int("pid", os.Getpid()))
}

// L returns the package default logger.
func L() *zap.Logger {
	return global.Load()
}

// Sync flushes the default logger.
func Sync() {
	_ = L().Sync()
}

type sessionKey struct{}

// WithSession stores a session id on ctx for WithCtx.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// WithCtx annotates base with the values carried by ctx. A nil base means L().
func WithCtx(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = L()
	}
	if id, ok := ctx.Value(sessionKey{}).(string); ok && id != "" {
		return base.With(zap.String("session_id", id))
	}
	return base
}

// ParseLevel maps a config string to a zap level. Unknown values mean info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		return zapcore.NewConsoleEncoder(encCfg)
	default:
		return zapcore.NewJSONEncoder(encCfg)
	}
}
