// Package log provides a leveled, module-scoped, key/value structured
// logger in the idiom used throughout this codebase:
//
//	logger.Info("fill hole completed", "chain", chain, "lo", lo, "hi", hi)
//
// It is a thin, purpose-built wrapper around zap: callers never see a
// zap type, only Logger and its five level methods. Every call is
// routed through a shared *zap.Logger core; nothing here hand-rolls
// the actual write path.
package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module identifies the subsystem emitting a log line. Kept as plain
// strings (rather than an enum) so new packages never need a change
// here to start logging.
type Module string

const (
	Chainweb    Module = "CHAINWEB"
	Coordinator Module = "COORDINATOR"
	Indexer     Module = "INDEXER"
	Store       Module = "STORE"
	Config      Module = "CONFIG"
	Publish     Module = "PUBLISH"
	Common      Module = "COMMON"
)

// Logger is the interface every module logger satisfies.
type Logger interface {
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{}) // logs at error level and exits the process
}

var (
	root     *zap.Logger
	colorize = isTerminal()
)

func init() {
	SetDebug(false)
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// SetDebug switches the global minimum level between Info and Debug,
// rebuilding the shared zap core. Called once at startup from the
// -d/--debug CLI flag; every already-constructed module logger reads
// this core dynamically on each call, so the flag takes effect even
// for loggers built at package-init time, before main runs.
func SetDebug(debug bool) {
	lvl := zapcore.InfoLevel
	if debug {
		lvl = zapcore.DebugLevel
	}
	writer := zapcore.AddSync(colorable.NewColorableStderr())
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:    "ts",
		LevelKey:   "level",
		NameKey:    "module",
		MessageKey: "msg",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02T15:04:05.000Z07:00"))
		},
		EncodeLevel: encodeLevel,
		EncodeName: func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + name + "]")
		},
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), writer, lvl)
	root = zap.New(core)
}

// encodeLevel renders a level the way the rest of this codebase's
// output always has: upper-cased, padded to five columns, color-coded
// when attached to a terminal.
func encodeLevel(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	s := fmt.Sprintf("%-5s", strings.ToUpper(lvl.String()))
	if colorize {
		s = levelColor(lvl).Sprint(s)
	}
	enc.AppendString(s)
}

func levelColor(lvl zapcore.Level) *color.Color {
	switch lvl {
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return color.New(color.FgRed, color.Bold)
	case zapcore.WarnLevel:
		return color.New(color.FgYellow)
	case zapcore.DebugLevel:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}

type moduleLogger struct {
	module Module
}

// NewModuleLogger returns a Logger scoped to the given module. Safe to
// call at package init time; it is cheap and carries no state beyond
// the module name, since the underlying zap logger is looked up from
// the shared root on every call rather than captured once.
func NewModuleLogger(m Module) Logger {
	return &moduleLogger{module: m}
}

func (l *moduleLogger) zl() *zap.Logger {
	return root.Named(string(l.module))
}

// fields converts the alternating key/value varargs every call site
// here uses into zap.Field values. A trailing unpaired value is kept
// under a fixed "ctx" key rather than dropped.
func fields(ctx []interface{}) []zap.Field {
	if len(ctx) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, (len(ctx)+1)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", ctx[i])
		}
		out = append(out, zap.Any(key, ctx[i+1]))
	}
	if len(ctx)%2 == 1 {
		out = append(out, zap.Any("ctx", ctx[len(ctx)-1]))
	}
	return out
}

// captureCaller returns the call site of the Logger method the caller
// invoked (Error or Crit), skipping this helper's own frame and the
// Logger method's frame.
func captureCaller() string {
	c := stack.Caller(2)
	return fmt.Sprintf("%+v", c)
}

func (l *moduleLogger) Debug(msg string, ctx ...interface{}) { l.zl().Debug(msg, fields(ctx)...) }
func (l *moduleLogger) Info(msg string, ctx ...interface{})  { l.zl().Info(msg, fields(ctx)...) }
func (l *moduleLogger) Warn(msg string, ctx ...interface{})  { l.zl().Warn(msg, fields(ctx)...) }

func (l *moduleLogger) Error(msg string, ctx ...interface{}) {
	fs := append(fields(ctx), zap.String("caller", captureCaller()))
	l.zl().Error(msg, fs...)
}

func (l *moduleLogger) Crit(msg string, ctx ...interface{}) {
	fs := append(fields(ctx), zap.String("caller", captureCaller()))
	l.zl().Error(msg, fs...)
	root.Sync()
	os.Exit(1)
}
