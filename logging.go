package canvas3d

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "INFO"
}

// LevelForMode is the lowest level a canvas logs at under m. Production
// drops info lines unless timings were asked for.
func LevelForMode(m *Mode) Level {
	switch {
	case m == nil:
		return LevelInfo
	case m.Debug:
		return LevelDebug
	case m.Production && !m.Timing:
		return LevelWarn
	}
	return LevelInfo
}

// sink is shared by a logger and every scope derived from it.
type sink struct {
	mu    sync.Mutex
	level Level
	out   *log.Logger
	err   *log.Logger
}

// DefaultLogger writes "[scope] LEVEL: message" lines. Loggers made with
// With share writers and level with their parent.
type DefaultLogger struct {
	scope string
	sink  *sink
}

func NewDefaultLogger(scope string, debug bool) *DefaultLogger {
	return NewDefaultLoggerTo(scope, debug, os.Stdout, os.Stderr)
}

// NewDefaultLoggerTo writes debug and info lines to out, warnings and
// errors to errOut.
func NewDefaultLoggerTo(scope string, debug bool, out, errOut io.Writer) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		scope: scope,
		sink:  &sink{level: LevelInfo, out: log.New(out, "", flags), err: log.New(errOut, "", flags)},
	}
	l.SetDebug(debug)
	return l
}

func newModeLogger(scope string, m *Mode) *DefaultLogger {
	l := NewDefaultLogger(scope, false)
	l.SetLevel(LevelForMode(m))
	return l
}

// With returns a logger for a sub scope, e.g. "canvas3d:1a2b/commit".
func (l *DefaultLogger) With(scope string) *DefaultLogger {
	if l.scope != "" {
		scope = l.scope + "/" + scope
	}
	return &DefaultLogger{scope: scope, sink: l.sink}
}

func (l *DefaultLogger) Scope() string { return l.scope }

func (l *DefaultLogger) Level() Level {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

func (l *DefaultLogger) SetLevel(level Level) {
	l.sink.mu.Lock()
	l.sink.level = level
	l.sink.mu.Unlock()
}

func (l *DefaultLogger) DebugEnabled() bool { return l.Level() <= LevelDebug }

// SetDebug lowers the level to debug, or raises it back to info.
func (l *DefaultLogger) SetDebug(enabled bool) {
	switch cur := l.Level(); {
	case enabled:
		l.SetLevel(LevelDebug)
	case cur == LevelDebug:
		l.SetLevel(LevelInfo)
	}
}

func (l *DefaultLogger) print(level Level, format string, args ...any) {
	if level < l.Level() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.scope != "" {
		msg = fmt.Sprintf("[%s] %s: %s", l.scope, level, msg)
	} else {
		msg = fmt.Sprintf("%s: %s", level, msg)
	}
	if level >= LevelWarn {
		l.sink.err.Print(msg)
		return
	}
	l.sink.out.Print(msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.print(LevelDebug, format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.print(LevelInfo, format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.print(LevelWarn, format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.print(LevelError, format, args...) }

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
