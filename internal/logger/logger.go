package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the global logger.
type Options struct {
	Enabled    bool
	Level      string
	Format     string // console|json
	File       string
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Fields     map[string]string

	// Writer replaces stderr as the console destination.
	Writer io.Writer
}

// Logger is a leveled logger wrapper.
type Logger struct {
	zl      zerolog.Logger
	closer  io.Closer
	enabled bool
}

var globalLogger *Logger

// Init initializes the logger. Console output goes to stderr; stdout belongs to the summary.
func Init(opts Options) error {
	if !opts.Enabled {
		globalLogger = &Logger{enabled: false}
		return nil
	}

	var writers []io.Writer
	var closer io.Closer

	if opts.File != "" {
		dir := filepath.Dir(opts.File)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, lj)
		closer = lj
	}

	if opts.Console || len(writers) == 0 {
		var out io.Writer = os.Stderr
		if opts.Writer != nil {
			out = opts.Writer
		}
		if strings.ToLower(opts.Format) != "json" {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05", NoColor: true}
		}
		writers = append(writers, out)
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp()
	for k, v := range opts.Fields {
		ctx = ctx.Str(k, v)
	}

	if old := globalLogger; old != nil && old.closer != nil {
		_ = old.closer.Close()
	}
	globalLogger = &Logger{
		zl:      ctx.Logger(),
		closer:  closer,
		enabled: true,
	}

	return nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	if globalLogger == nil || globalLogger.closer == nil {
		return nil
	}
	err := globalLogger.closer.Close()
	globalLogger.closer = nil
	return err
}

func parseLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func logf(level zerolog.Level, format string, args ...interface{}) {
	if globalLogger == nil || !globalLogger.enabled {
		return
	}
	globalLogger.zl.WithLevel(level).Msg(fmt.Sprintf(format, args...))
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	logf(zerolog.DebugLevel, format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	logf(zerolog.InfoLevel, format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) {
	logf(zerolog.WarnLevel, format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	logf(zerolog.ErrorLevel, format, args...)
}

// Since formats the elapsed time for log lines.
func Since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
