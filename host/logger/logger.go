// Package logger is the zap logger shared by the host tools: a console
// core teed with a rotating lumberjack file core.
package logger

import (
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger *zap.Logger
)

type LogLevel int8

const (
	DebugLevel LogLevel = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel maps a flag value to a level, defaulting to InfoLevel
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	}
	return InfoLevel
}

// Config selects the sinks of the host logger
type Config struct {
	Level LogLevel
	Color bool

	// File is the rotating log file; empty disables the file sink
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console sink, os.Stderr when nil so stdout stays free for protocol
	// traffic
	Console zapcore.WriteSyncer
}

func newEncoder(color bool) zapcore.Encoder {
	level := zapcore.CapitalLevelEncoder
	if color {
		level = zapcore.CapitalColorLevelEncoder
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "time",
		CallerKey:        "caller",
		EncodeLevel:      level,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}

	return zapcore.NewConsoleEncoder(encoderConfig)
}

func newFileCore(level zapcore.Level, cfg Config) zapcore.Core {
	logFile := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   false,
		LocalTime:  true,
	}

	// Escape codes do not belong in the file
	return zapcore.NewCore(newEncoder(false), zapcore.AddSync(logFile), level)
}

// New builds a logger from cfg without installing it
func New(cfg Config) *zap.Logger {
	level := zapcore.Level(cfg.Level)

	console := cfg.Console
	if console == nil {
		console = zapcore.Lock(os.Stderr)
	}
	cores := []zapcore.Core{zapcore.NewCore(newEncoder(cfg.Color), console, level)}
	if cfg.File != "" {
		cores = append(cores, newFileCore(level, cfg))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

// InitLogger installs the package logger
func InitLogger(cfg Config) {
	Logger = New(cfg)
}

// Sync flushes buffered log entries
func Sync() error {
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}

func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Infof(format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Debugf(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Errorf(format, args...)
	}
}

// Fatalf logs and exits
func Fatalf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Fatalf(format, args...)
	}
	os.Exit(1)
}

// FirmwareWriter returns a sink for core.SetDebugWriter that logs firmware
// debug lines at debug level
func FirmwareWriter() func(string) {
	return func(msg string) {
		Debugf("%s", msg)
	}
}
