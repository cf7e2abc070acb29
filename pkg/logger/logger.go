package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// slogLevel maps the package levels onto slog levels. FATAL is logged as an
// error record followed by os.Exit.
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case FATAL:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name (case-insensitive) into a LogLevel.
// Unknown names fall back to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "FATAL", "ERROR":
		return FATAL
	default:
		return INFO
	}
}

// Logger is a leveled printf-style logger writing through a tint handler.
type Logger struct {
	mu         sync.Mutex
	level      *slog.LevelVar
	out        io.Writer
	prefix     string
	colorize   bool
	showCaller bool
	timeFormat string
	slog       *slog.Logger
	exit       func(int)
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	TimeFormat string
	Output     io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Colorize:   true,
		TimeFormat: time.DateTime,
		Output:     os.Stderr,
	}
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.DateTime
	}

	l := &Logger{
		level:      new(slog.LevelVar),
		out:        cfg.Output,
		prefix:     cfg.Prefix,
		colorize:   cfg.Colorize,
		showCaller: cfg.ShowCaller,
		timeFormat: cfg.TimeFormat,
		exit:       os.Exit,
	}
	l.level.Set(cfg.Level.slogLevel())
	l.rebuild()
	return l
}

// rebuild recreates the slog handler after an output or format change.
// Callers must hold l.mu or own l exclusively.
func (l *Logger) rebuild() {
	h := tint.NewHandler(l.out, &tint.Options{
		Level:      l.level,
		TimeFormat: l.timeFormat,
		NoColor:    !l.colorize,
		AddSource:  l.showCaller,
	})
	sl := slog.New(h)
	if l.prefix != "" {
		sl = sl.With("component", l.prefix)
	}
	l.slog = sl
}

func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
			cfg.Level = ParseLevel(envLevel)
		}
		if os.Getenv("NO_COLOR") != "" {
			cfg.Colorize = false
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// With returns a child logger that tags every record with the given prefix.
func (l *Logger) With(prefix string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &Logger{
		level:      l.level,
		out:        l.out,
		prefix:     prefix,
		colorize:   l.colorize,
		showCaller: l.showCaller,
		timeFormat: l.timeFormat,
		exit:       l.exit,
	}
	child.rebuild()
	return child
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	l.rebuild()
}

func (l *Logger) SetColorize(colorize bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colorize = colorize
	l.rebuild()
}

func (l *Logger) SetShowCaller(show bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.showCaller = show
	l.rebuild()
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	l.mu.Lock()
	sl := l.slog
	l.mu.Unlock()

	lvl := level.slogLevel()
	if !sl.Enabled(context.Background(), lvl) {
		return
	}

	message := msg
	if len(args) > 0 {
		message = fmt.Sprintf(msg, args...)
	}
	sl.Log(context.Background(), lvl, message)

	if level == FATAL {
		l.exit(1)
	}
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, args ...any) {
	l.log(DEBUG, msg, args...)
}

// Info logs a message at INFO level
func (l *Logger) Info(msg string, args ...any) {
	l.log(INFO, msg, args...)
}

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, args ...any) {
	l.log(WARN, msg, args...)
}

// Fatal logs a message at FATAL level and exits the program
func (l *Logger) Fatal(msg string, args ...any) {
	l.log(FATAL, msg, args...)
}

// Error is an alias for Warn for backwards compatibility
func (l *Logger) Error(msg string, args ...any) {
	l.log(WARN, msg, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.Debug(format, args...) }

func (l *Logger) Infof(format string, args ...any) { l.Info(format, args...) }

func (l *Logger) Warnf(format string, args ...any) { l.Warn(format, args...) }

func (l *Logger) Fatalf(format string, args ...any) { l.Fatal(format, args...) }

func (l *Logger) Errorf(format string, args ...any) { l.Warnf(format, args...) }

// Package-level convenience functions using the default logger

func Debugf(format string, args ...any) { GetLogger().Debugf(format, args...) }

func Infof(format string, args ...any) { GetLogger().Infof(format, args...) }

func Warnf(format string, args ...any) { GetLogger().Warnf(format, args...) }

func Fatalf(format string, args ...any) { GetLogger().Fatalf(format, args...) }

func Errorf(format string, args ...any) { GetLogger().Errorf(format, args...) }

// SetLevel sets the log level for the default logger
func SetLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

// SetOutput sets the output for the default logger
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

// SetColorize enables or disables colored output for the default logger
func SetColorize(colorize bool) {
	GetLogger().SetColorize(colorize)
}

// Leveled is the printf-style subset of Logger that library packages depend
// on, so callers can plug in their own implementation.
type Leveled interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

var _ Leveled = (*Logger)(nil)

// OrDefault returns l, or the process-wide logger when l is nil.
func OrDefault(l Leveled) Leveled {
	if l == nil {
		return GetLogger()
	}
	return l
}

// Discard returns a logger that drops every record. Handy in tests.
func Discard() *Logger {
	return New(Config{Level: FATAL, Output: io.Discard})
}
