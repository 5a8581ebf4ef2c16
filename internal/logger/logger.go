package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel maps a config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger provides component-scoped structured logging on top of zerolog
type Logger struct {
	zl        zerolog.Logger
	bound     bool
	component string
}

// Config for creating the default logger
type Config struct {
	Output   io.Writer
	MinLevel Level
	UseColor bool
	// JSON switches from the console writer to JSON lines.
	JSON bool
}

var (
	defaultLogger  *Logger
	timeFormatOnce sync.Once
	mu             sync.RWMutex
)

// Init installs the default logger. Later calls replace it, so startup can
// log with built-in settings and switch once configuration is loaded.
// Component loggers from WithComponent follow the replacement.
func Init(cfg Config) {
	l := New(cfg)

	mu.Lock()
	defaultLogger = l
	mu.Unlock()

	// Redirect standard log to our logger
	log.SetOutput(&logAdapter{logger: l})
	log.SetFlags(0)
}

// New builds a standalone logger without touching the default one.
func New(cfg Config) *Logger {
	timeFormatOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	})
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	var out io.Writer = cfg.Output
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			NoColor:    !cfg.UseColor,
			TimeFormat: "2006-01-02 15:04:05.000",
		}
	}
	return &Logger{
		zl:    zerolog.New(out).Level(cfg.MinLevel.zerolog()).With().Timestamp().Logger(),
		bound: true,
	}
}

// logAdapter adapts standard log to our logger
type logAdapter struct {
	logger *Logger
}

func (a *logAdapter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	a.logger.Info("%s", msg)
	return len(p), nil
}

// Default returns the default logger, installing a console logger at INFO
// if Init has not run yet.
func Default() *Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(Config{
			Output:   os.Stdout,
			MinLevel: INFO,
			UseColor: true,
		})
	}
	return defaultLogger
}

// WithComponent creates a logger with a component name.
// The returned logger resolves the default logger lazily, so package-level
// component loggers pick up the configuration passed to Init later on.
func WithComponent(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) base() zerolog.Logger {
	if l.bound {
		return l.zl
	}
	zl := Default().zl
	if l.component != "" {
		zl = zl.With().Str("component", l.component).Logger()
	}
	return zl
}

// Component returns a child of l tagged with a component name.
func (l *Logger) Component(component string) *Logger {
	return &Logger{
		zl:        l.base().With().Str("component", component).Logger(),
		bound:     true,
		component: component,
	}
}

// WithField returns a new logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		zl:        l.base().With().Interface(key, value).Logger(),
		bound:     true,
		component: l.component,
	}
}

// WithFields returns a new logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{
		zl:        l.base().With().Fields(fields).Logger(),
		bound:     true,
		component: l.component,
	}
}

// Zerolog exposes the underlying zerolog logger for callers that build
// events field by field.
func (l *Logger) Zerolog() *zerolog.Logger {
	zl := l.base()
	return &zl
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	zl := l.base()
	ev := zl.WithLevel(level.zerolog())
	if ev == nil {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	ev.Msg(msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(DEBUG, msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(INFO, msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(WARN, msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(ERROR, msg, args...)
}

// ErrorWithStack logs an error with stack trace
func (l *Logger) ErrorWithStack(msg string, err error) {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	l.WithField("error", err.Error()).WithField("stack", string(buf[:n])).Error("%s", msg)
}

// Package-level convenience functions

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }
