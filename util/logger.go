// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// zap levels for the two chatty tiers.  Verbose sits on zap's debug
// level; debug goes one step below it.
const (
	zapVerbose = zapcore.DebugLevel
	zapDebug   = zapcore.DebugLevel - 1
)

var levelTags = map[zapcore.Level]string{
	zapDebug:            "[DBG]",
	zapVerbose:          "[VRB]",
	zapcore.InfoLevel:   "[INF]",
	zapcore.WarnLevel:   "[WRN]",
	zapcore.ErrorLevel:  "[ERR]",
	zapcore.DPanicLevel: "[ERR]",
	zapcore.PanicLevel:  "[ERR]",
	zapcore.FatalLevel:  "[ERR]",
}

// Logger writes levelled messages to stderr, optionally teeing them
// as JSON to a rotated log file.
type Logger struct {
	mu         sync.Mutex
	atom       zap.AtomicLevel
	output     io.Writer
	timestamps bool
	file       *lumberjack.Logger
	fields     []zap.Field
	zl         *zap.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		atom:       zap.NewAtomicLevelAt(zapLevel(LogLevel(verbosity))),
		output:     os.Stderr,
		timestamps: verbosity >= 3,
	}
	l.rebuild()
	return l
}

func zapLevel(v LogLevel) zapcore.Level {
	switch {
	case v <= LogQuiet:
		return zapcore.ErrorLevel
	case v == LogNormal:
		return zapcore.InfoLevel
	case v == LogVerbose:
		return zapVerbose
	default:
		return zapDebug
	}
}

// SetTimestamps enables or disables timestamp prefixes on the console.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the console writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// SetFile tees every enabled entry as JSON to path, rotated by size.
// An empty path disables the file sink.
func (l *Logger) SetFile(path string, maxSizeMB int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	if path != "" {
		l.file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: 3,
			Compress:   true,
		}
	}
	l.rebuild()
}

// With returns a child logger that adds key=value to every entry.
// The child shares sinks and level with its parent.
func (l *Logger) With(key string, value interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &Logger{
		atom:       l.atom,
		output:     l.output,
		timestamps: l.timestamps,
		file:       l.file,
		fields:     append(append([]zap.Field(nil), l.fields...), zap.Any(key, value)),
	}
	child.zl = l.zl.With(zap.Any(key, value))
	return child
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(zapcore.InfoLevel, format, args...)
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(zapcore.WarnLevel, format, args...)
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.write(zapVerbose, format, args...)
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(zapDebug, format, args...)
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(zapcore.ErrorLevel, format, args...)
}

// Close flushes buffered entries and closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.zl.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) write(lvl zapcore.Level, format string, args ...interface{}) {
	l.mu.Lock()
	zl := l.zl
	l.mu.Unlock()

	if ce := zl.Check(lvl, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// rebuild recreates the zap logger after a sink change.  Callers hold mu.
func (l *Logger) rebuild() {
	console := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		EncodeLevel:      encodeLevelTag,
		ConsoleSeparator: " ",
	}
	if l.timestamps {
		console.TimeKey = "ts"
		console.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(console), zapcore.Lock(zapcore.AddSync(l.output)), l.atom),
	}

	if l.file != nil {
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		jsonCfg.EncodeLevel = encodeLevelTag
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(l.file), l.atom))
	}

	l.zl = zap.New(zapcore.NewTee(cores...)).With(l.fields...)
}

func encodeLevelTag(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if tag, ok := levelTags[lvl]; ok {
		enc.AppendString(tag)
		return
	}
	enc.AppendString("[" + lvl.CapitalString() + "]")
}
