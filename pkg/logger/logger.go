// Package logger provides standardized logging for the instruction selector
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

// ParseLevel maps a flag value to a level, defaulting to info
func ParseLevel(s string) LogLevel {
	switch s {
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
	logPath := filepath.Join(logDir, "a64isel.log")
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

// Selector-specific logging helpers

// LogPhase logs the start of a selection phase
func LogPhase(phase string) {
	Info("Starting selection phase", "phase", phase)
}

// LogPhaseComplete logs the completion of a selection phase
func LogPhaseComplete(phase string) {
	Info("Completed selection phase", "phase", phase)
}

// LogSelection logs one node before and after selection
func LogSelection(function, before, after string) {
	Debug("Selected node", "function", function, "node", before, "result", after)
}

// LogMaterialization logs which strategy produced an integer constant
func LogMaterialization(strategy string, value uint64, width int) {
	Debug("Materialized constant", "strategy", strategy, "value", value, "width", width)
}

// LogAtomicLowering logs an atomic rewrite
func LogAtomicLowering(kind string, width int, ordering string) {
	Debug("Lowered atomic", "kind", kind, "width", width, "ordering", ordering)
}

// LogPoolEntry logs creation of a literal pool entry
func LogPoolEntry(label, typ string, bits uint64) {
	Debug("Created constant pool entry", "label", label, "type", typ, "bits", bits)
}

// LogFunctionSelected logs completion of one function
func LogFunctionSelected(function string, nodes, removed int) {
	Info("Function selected", "function", function, "nodes", nodes, "removed", removed)
}

// LogVerification logs the result of verifying a selected graph
func LogVerification(function string, err error) {
	if err != nil {
		Error("Selected graph failed verification", "function", function, "error", err)
		return
	}
	Debug("Selected graph verified", "function", function)
}

// LogContractViolation logs a fatal upstream contract violation
func LogContractViolation(msg string) {
	Error("Contract violation", "message", msg)
}
