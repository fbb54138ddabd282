// Package corelog is the structured-logging wrapper used throughout this
// module. It follows the call convention every package in the teacher
// codebase uses at its core.Log.* call sites: a "module" first argument
// (anything with a String() method identifying the emitting component)
// followed by a message and loose key/value pairs.
package corelog

import (
	"context"
	"log/slog"
	"os"

	ndnlog "github.com/ndnswitch/core/std/log"
)

// Module is anything that can identify itself in a log line.
type Module interface {
	String() string
}

var base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// Level is the active minimum log level, stored so SetLevel can be called
// after init (e.g. from a parsed config file) without re-plumbing loggers
// through every constructor.
var level = new(slog.LevelVar)

func init() {
	base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetLevel adjusts the minimum level emitted by the process-wide logger.
func SetLevel(l ndnlog.Level) {
	level.Set(slog.Level(l))
}

func attrs(m Module, kv []any) []any {
	out := make([]any, 0, len(kv)+2)
	out = append(out, "module", m.String())
	out = append(out, kv...)
	return out
}

// Trace logs at trace level (below slog's Debug; mapped onto a custom level).
func Trace(m Module, msg string, kv ...any) {
	base.Log(context.Background(), slog.Level(ndnlog.LevelTrace), msg, attrs(m, kv)...)
}

// Debug logs diagnostic detail not useful outside development.
func Debug(m Module, msg string, kv ...any) {
	base.Debug(msg, attrs(m, kv)...)
}

// Info logs a normal operational event.
func Info(m Module, msg string, kv ...any) {
	base.Info(msg, attrs(m, kv)...)
}

// Warn logs a recoverable anomaly.
func Warn(m Module, msg string, kv ...any) {
	base.Warn(msg, attrs(m, kv)...)
}

// Error logs a local failure. Per the error-propagation policy, datapath
// errors are always local: log, bump a counter, drop the packet.
func Error(m Module, msg string, kv ...any) {
	base.Error(msg, attrs(m, kv)...)
}

// Fatal logs at the highest level and exits the process. Reserved for
// construction-time ConfigError conditions.
func Fatal(m Module, msg string, kv ...any) {
	base.Log(context.Background(), slog.Level(ndnlog.LevelFatal), msg, attrs(m, kv)...)
	os.Exit(1)
}
