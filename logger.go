package fsmgen

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the logging contract shared by every package in the module.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// FieldsLogger extends Logger with structured-field support.
type FieldsLogger interface {
	WithFields(map[string]any) Logger
}

// Level orders log severities from trace to fatal.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = []string{"trace", "debug", "info", "warn", "error", "fatal"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelFatal {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts the names used by log_level and --log-level. An empty
// name is info.
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return LevelInfo, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelInfo, NewError(ErrParseFailed, fmt.Sprintf("invalid log level %q", name), nil,
		map[string]any{"level": name})
}

// TextLogger writes one line per entry, "LEVEL message k=v", and drops
// entries below its level. Copies made by WithFields share the writer.
type TextLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	min    Level
	fields map[string]any
}

// NewTextLogger logs to out, or stderr when out is nil. An unknown level
// falls back to info.
func NewTextLogger(out io.Writer, level string) *TextLogger {
	if out == nil {
		out = os.Stderr
	}
	threshold, _ := ParseLevel(level)
	return &TextLogger{mu: &sync.Mutex{}, out: out, min: threshold}
}

func (l *TextLogger) Trace(msg string, args ...any) { l.write(LevelTrace, msg, args) }
func (l *TextLogger) Debug(msg string, args ...any) { l.write(LevelDebug, msg, args) }
func (l *TextLogger) Info(msg string, args ...any)  { l.write(LevelInfo, msg, args) }
func (l *TextLogger) Warn(msg string, args ...any)  { l.write(LevelWarn, msg, args) }
func (l *TextLogger) Error(msg string, args ...any) { l.write(LevelError, msg, args) }
func (l *TextLogger) Fatal(msg string, args ...any) { l.write(LevelFatal, msg, args) }

func (l *TextLogger) WithContext(context.Context) Logger { return l }

// WithFields returns a copy carrying fields on top of the current ones.
func (l *TextLogger) WithFields(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	cp := *l
	cp.fields = make(map[string]any, len(l.fields)+len(fields))
	maps.Copy(cp.fields, l.fields)
	maps.Copy(cp.fields, fields)
	return &cp
}

func (l *TextLogger) write(level Level, msg string, args []any) {
	if level < l.min {
		return
	}
	msg = sprintf(msg, args)
	var b strings.Builder
	b.WriteString(strings.ToUpper(level.String()))
	b.WriteByte(' ')
	b.WriteString(strings.TrimSpace(msg))
	for _, k := range slices.Sorted(maps.Keys(l.fields)) {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

// NopLogger discards everything. Engines default to it so library use stays quiet.
type NopLogger struct{}

func (NopLogger) Trace(string, ...any)                 {}
func (NopLogger) Debug(string, ...any)                 {}
func (NopLogger) Info(string, ...any)                  {}
func (NopLogger) Warn(string, ...any)                  {}
func (NopLogger) Error(string, ...any)                 {}
func (NopLogger) Fatal(string, ...any)                 {}
func (n NopLogger) WithContext(context.Context) Logger { return n }

// GlogLogger adapts a go-logger glog.Logger to Logger.
type GlogLogger struct {
	logger glog.Logger
}

// NewGlogLogger builds a JSON glog logger writing to out at the given level.
func NewGlogLogger(out io.Writer, level string) *GlogLogger {
	if out == nil {
		out = os.Stderr
	}
	threshold, _ := ParseLevel(level)
	return WrapGlog(glog.NewLogger(
		glog.WithWriter(out),
		glog.WithLoggerTypeJSON(),
		glog.WithLevel(threshold.String()),
	))
}

// WrapGlog adapts an existing glog.Logger.
func WrapGlog(logger glog.Logger) *GlogLogger {
	return &GlogLogger{logger: logger}
}

// glog reads trailing args as attributes; callers here pass printf args.
func (l *GlogLogger) Trace(msg string, args ...any) { l.logger.Trace(sprintf(msg, args)) }
func (l *GlogLogger) Debug(msg string, args ...any) { l.logger.Debug(sprintf(msg, args)) }
func (l *GlogLogger) Info(msg string, args ...any)  { l.logger.Info(sprintf(msg, args)) }
func (l *GlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(sprintf(msg, args)) }
func (l *GlogLogger) Error(msg string, args ...any) { l.logger.Error(sprintf(msg, args)) }
func (l *GlogLogger) Fatal(msg string, args ...any) { l.logger.Fatal(sprintf(msg, args)) }

func sprintf(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

func (l *GlogLogger) WithContext(ctx context.Context) Logger {
	if l == nil || l.logger == nil {
		return NopLogger{}
	}
	return &GlogLogger{logger: l.logger.WithContext(ctx)}
}

func (l *GlogLogger) WithFields(fields map[string]any) Logger {
	if l == nil || l.logger == nil {
		return NopLogger{}
	}
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return &GlogLogger{logger: fl.WithFields(fields)}
	}
	return l
}

// NormalizeLogger returns logger, or a NopLogger when it is nil.
func NormalizeLogger(logger Logger) Logger {
	if logger == nil {
		return NopLogger{}
	}
	return logger
}

// WithLoggerFields attaches fields when the logger supports them.
func WithLoggerFields(logger Logger, fields map[string]any) Logger {
	logger = NormalizeLogger(logger)
	if fl, ok := logger.(FieldsLogger); ok {
		return fl.WithFields(fields)
	}
	return logger
}
