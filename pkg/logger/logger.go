// Package logger provides standardized logging utilities for the Pyxis compiler
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
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

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
	LogFile   string
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	var handler slog.Handler

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
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

// ParseLevel maps a level name ("debug", "info", "warn", "error") to a LogLevel.
// Unknown names fall back to info.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
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

// Compiler-specific logging helpers

// LogPhase logs the start of a compilation phase
func LogPhase(phase string, file string) {
	Debug("Starting compilation phase", "phase", phase, "file", file)
}

// LogPhaseComplete logs the completion of a compilation phase
func LogPhaseComplete(phase string, file string, diagnostics int) {
	Debug("Completed compilation phase", "phase", phase, "file", file, "diagnostics", diagnostics)
}

// LogLexing logs lexing activity
func LogLexing(file string, tokenCount int) {
	Debug("Lexing complete", "file", file, "tokens", tokenCount)
}

// LogParsing logs parsing activity
func LogParsing(file string, stmtCount int) {
	Debug("Parsing complete", "file", file, "statements", stmtCount)
}

// LogValidation logs semantic validation
func LogValidation(file string, scopeCount int, diagnostics int) {
	Debug("Validation complete", "file", file, "scopes", scopeCount, "diagnostics", diagnostics)
}

// LogCodeGen logs code generation
func LogCodeGen(format string, file string, lineCount int) {
	Debug("Code generation complete",
		"format", format,
		"file", file,
		"lines", lineCount)
}

// LogDiagnostic logs a single compiler diagnostic at a level matching its severity
func LogDiagnostic(file string, severity string, line int, col int, code string, msg string) {
	args := []any{
		"file", file,
		"line", line,
		"column", col,
		"code", code,
		"message", msg,
	}
	if severity == "error" {
		Debug("Compilation error", args...)
		return
	}
	Debug("Compilation warning", args...)
}

// LogCompilerStart logs compiler startup
func LogCompilerStart(args []string) {
	Info("Pyxis compiler starting", "args", args)
}

// LogCompilerComplete logs compiler completion
func LogCompilerComplete(success bool, duration string) {
	if success {
		Info("Compilation successful", "duration", duration)
	} else {
		Error("Compilation failed", "duration", duration)
	}
}

// LogFileProcessing logs file processing start
func LogFileProcessing(file string) {
	Info("Processing file", "file", file)
}
