// Package logger provides standardized logging utilities for the Calyx compiler
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Global logger instance
var defaultLogger *slog.Logger

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
	LogFile   string
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	var handler slog.Handler

	output := cfg.Output
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		output = file
	}

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	return nil
}

// InitDev initializes logging for development (debug level, text format)
func InitDev() {
	_ = Init(Config{
		Level:     LevelDebug,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: true,
	})
}

// InitProd initializes logging for production (info level, json format)
func InitProd(logDir string) error {
	logPath := filepath.Join(logDir, "calyx-compiler.log")
	return Init(Config{
		Level:     LevelInfo,
		Format:    "json",
		LogFile:   logPath,
		AddSource: false,
	})
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Error(msg, args...)
	}
}

// With returns a new logger with the given attributes
func With(args ...any) *slog.Logger {
	if defaultLogger != nil {
		return defaultLogger.With(args...)
	}
	return slog.Default().With(args...)
}

// WithGroup returns a new logger with the given group
func WithGroup(name string) *slog.Logger {
	if defaultLogger != nil {
		return defaultLogger.WithGroup(name)
	}
	return slog.Default().WithGroup(name)
}

// Compiler-specific logging helpers

// LogPhase logs the start of a compilation phase
func LogPhase(phase string) {
	Info("Starting compilation phase", "phase", phase)
}

// LogPhaseComplete logs the completion of a compilation phase
func LogPhaseComplete(phase string) {
	Info("Completed compilation phase", "phase", phase)
}

// LogPass logs completion of one optimization pass over a declaration
func LogPass(pass string, declaration string) {
	Debug("Optimization pass complete", "pass", pass, "declaration", declaration)
}

// LogDeclaration logs the start of per-declaration optimization
func LogDeclaration(name string) {
	Debug("Optimizing declaration", "declaration", name)
}

// LogDefect logs a rewrite defect that aborts the current declaration
func LogDefect(declaration string, pass string, err error) {
	Error("Rewrite defect",
		"declaration", declaration,
		"pass", pass,
		"error", err)
}

// LogUnitComplete logs the end of optimization for a compilation unit
func LogUnitComplete(declarations int, success bool) {
	if success {
		Info("Unit optimization complete", "declarations", declarations)
	} else {
		Error("Unit optimization failed", "declarations", declarations)
	}
}
