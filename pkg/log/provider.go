package log

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/rs/zerolog"

	tterrors "github.com/YuminosukeSato/tabtune/pkg/errors"
)

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.logger.Debug(msg, fields...) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.logger.Info(msg, fields...) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.logger.Warn(msg, fields...) }
func (s *slogLogger) Error(msg string, fields ...any) { s.logger.Error(msg, fields...) }

func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: s.logger.With(fields...), level: s.level}
}

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.logger.Enabled(ctx, slog.Level(level))
}

// slogProvider is the default LoggerProvider, backed by a JSON slog handler
// with stacktrace extraction.
type slogProvider struct {
	level *slog.LevelVar
	root  *slog.Logger
}

func newSlogProvider() *slogProvider {
	level := &slog.LevelVar{}
	level.Set(slog.LevelInfo)
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return &slogProvider{
		level: level,
		root:  slog.New(handler),
	}
}

func (p *slogProvider) GetLogger() Logger {
	return &slogLogger{logger: p.root, level: p.level}
}

func (p *slogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{logger: p.root.With(ComponentKey, name), level: p.level}
}

func (p *slogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = newSlogProvider()
)

// SetProvider replaces the package-wide logger provider. Tests use this to
// install a TestLoggerProvider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
}

// GetLogger returns the default logger from the current provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// SetLevel adjusts the emission level of the current provider when it
// supports level changes.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if l, ok := provider.(interface{ SetLevel(Level) }); ok {
		l.SetLevel(level)
	}
}

// GetLoggerWithName returns a component-tagged logger from the current provider.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// WireWarnings routes pkg/errors warnings through a zerolog writer so
// structured warnings (FitQualityWarning and friends) are emitted as JSON
// with their marshaled fields.
func WireWarnings() {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	tterrors.SetZerologWarnFunc(func(warning error) {
		ev := zl.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(warning.Error())
	})
}
