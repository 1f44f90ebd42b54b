package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig controls how the global logger is built.
type LogConfig struct {
	Level       string
	Development bool

	// File enables an additional JSON file sink with size based rotation.
	File     string
	Rotation RotationConfig
}

// RotationConfig is handed to lumberjack for the file sink.
type RotationConfig struct {
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

// ParseLevel maps a config string to a zap level. Unknown values fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger initializes the global sugared logger.
func InitLogger(cfg LogConfig) error {
	z, err := Build(cfg)
	if err != nil {
		return err
	}

	SetLogger(z.Sugar())
	return nil
}

// Build constructs a zap logger from cfg without touching the global one.
func Build(cfg LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	z, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	if cfg.File == "" {
		return z, nil
	}

	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.Rotation.MaxSize,
		MaxBackups: cfg.Rotation.MaxBackups,
		MaxAge:     cfg.Rotation.MaxAge,
		Compress:   cfg.Rotation.Compress,
	})
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		fileSink,
		level,
	)

	return z.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}

// SetLogger replaces the global logger. Tests use it to install an observer.
func SetLogger(l *zap.SugaredLogger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// L returns the global sugared logger.
// If InitLogger has not been called, it initializes at info level.
func L() *zap.SugaredLogger {
	mu.RLock()
	l := logger
	mu.RUnlock()

	if l != nil {
		return l
	}

	if err := InitLogger(LogConfig{Level: "info"}); err != nil {
		fallback := zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			zapcore.InfoLevel,
		)).Sugar()
		SetLogger(fallback)
	}

	mu.RLock()
	defer mu.RUnlock()
	return logger
}
