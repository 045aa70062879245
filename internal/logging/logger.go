// Package logging writes leveled diagnostic lines through zap. Diagnostics
// never go to stdout, which carries the event stream.
package logging

import (
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	zap         *zap.Logger
	minLevel    Level
	baseContext map[string]string
}

// New builds a logger appending to path. An empty path returns a logger that
// discards everything.
func New(minLevel Level, path string) (*Logger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewNop(), nil
	}
	minLevel = normalizeLevel(minLevel)

	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig = encoderConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel(minLevel))
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Sampling = nil
	config.DisableCaller = true
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{zap: logger, minLevel: minLevel}, nil
}

func NewLoggerWithOutput(minLevel Level, output io.Writer) *Logger {
	if output == nil {
		output = io.Discard
	}
	minLevel = normalizeLevel(minLevel)
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.AddSync(output),
		zap.NewAtomicLevelAt(zapLevel(minLevel)),
	)
	return &Logger{zap: zap.New(core), minLevel: minLevel}
}

func NewNop() *Logger {
	return &Logger{zap: zap.NewNop(), minLevel: LevelError}
}

func (l *Logger) With(fields map[string]string) *Logger {
	if l == nil {
		return l
	}
	return &Logger{
		zap:         l.zap,
		minLevel:    l.minLevel,
		baseContext: cloneFields(l.baseContext, fields),
	}
}

func (l *Logger) Debug(message string, fields map[string]string) {
	l.log(LevelDebug, message, fields)
}

func (l *Logger) Info(message string, fields map[string]string) {
	l.log(LevelInfo, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]string) {
	l.log(LevelWarning, message, fields)
}

func (l *Logger) Error(message string, fields map[string]string) {
	l.log(LevelError, message, fields)
}

func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return levelRank(level) >= levelRank(l.minLevel)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) log(level Level, message string, fields map[string]string) {
	if l == nil || l.zap == nil || !l.Enabled(level) {
		return
	}
	context := cloneFields(l.baseContext, fields)
	zapFields := make([]zap.Field, 0, len(context))
	keys := make([]string, 0, len(context))
	for key := range context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		zapFields = append(zapFields, zap.String(key, context[key]))
	}

	switch level {
	case LevelDebug:
		l.zap.Debug(message, zapFields...)
	case LevelWarning:
		l.zap.Warn(message, zapFields...)
	case LevelError:
		l.zap.Error(message, zapFields...)
	default:
		l.zap.Info(message, zapFields...)
	}
}

func encoderConfig() zapcore.EncoderConfig {
	config := zap.NewProductionEncoderConfig()
	config.TimeKey = "ts"
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncodeLevel = zapcore.LowercaseLevelEncoder
	config.CallerKey = zapcore.OmitKey
	config.StacktraceKey = zapcore.OmitKey
	return config
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarning:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func normalizeLevel(level Level) Level {
	switch level {
	case LevelDebug, LevelInfo, LevelWarning, LevelError:
		return level
	default:
		return LevelInfo
	}
}

func levelRank(level Level) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

func ParseLevel(value string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warning", "warn":
		return LevelWarning, true
	case "error":
		return LevelError, true
	default:
		return "", false
	}
}

func cloneFields(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	combined := make(map[string]string, len(base)+len(extra))
	for key, value := range base {
		combined[key] = value
	}
	for key, value := range extra {
		combined[key] = value
	}
	return combined
}
