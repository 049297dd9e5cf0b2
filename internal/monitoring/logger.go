// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger or UseSlog. Tests can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Options configures NewLogger.
type Options struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// Dir receives a rotating viewplan.log. Empty logs to stderr.
	Dir string
	// MaxSizeMB is the rotation threshold of the log file.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
}

// NewLogger builds a JSON slog logger. When opts.Dir is set the output goes
// to a size-rotated file, otherwise to stderr. The returned closer flushes
// and closes the file.
func NewLogger(opts Options) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "viewplan.log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		if lj.MaxSize <= 0 {
			lj.MaxSize = 32 // MB
		}
		w = lj
		closer = lj
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h), closer, nil
}

// UseSlog routes Logf through l at info level. Messages starting with
// "warn:" or "error:" are logged at the matching level.
func UseSlog(l *slog.Logger) {
	if l == nil {
		SetLogger(nil)
		return
	}
	SetLogger(func(format string, v ...interface{}) {
		msg := fmt.Sprintf(format, v...)
		switch {
		case strings.HasPrefix(msg, "warn:"):
			l.Warn(strings.TrimSpace(strings.TrimPrefix(msg, "warn:")))
		case strings.HasPrefix(msg, "error:"):
			l.Error(strings.TrimSpace(strings.TrimPrefix(msg, "error:")))
		default:
			l.Info(msg)
		}
	})
}

// Component adapts a slog logger to the Debugf/Warnf logger interface
// taken by the planner components.
type Component struct {
	l *slog.Logger
}

// NewComponent returns a Component tagging every record with name.
func NewComponent(l *slog.Logger, name string) Component {
	return Component{l: l.With("component", name)}
}

func (c Component) Debugf(format string, v ...interface{}) {
	c.l.Debug(fmt.Sprintf(format, v...))
}

func (c Component) Warnf(format string, v ...interface{}) {
	c.l.Warn(fmt.Sprintf(format, v...))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
