package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type ctxKey struct{}

var (
	mu         sync.RWMutex
	globalBase *zap.Logger
)

// Init initializes the global zap logger. env can be "production" or "development" (default).
// The stdlib log output is redirected to zap so stray log.Printf calls are captured.
func Init(env string) (*zap.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalBase != nil {
		return globalBase, nil
	}

	var cfg zap.Config
	if strings.EqualFold(env, "prod") || strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(base)
	_ = zap.RedirectStdLog(base)

	globalBase = base
	return globalBase, nil
}

// SetBase replaces the global logger. Tests use it to capture output with zaptest/observer.
func SetBase(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	globalBase = l
}

// Base returns the global *zap.Logger, initializing it from LOG_ENV on first use.
func Base() *zap.Logger {
	mu.RLock()
	base := globalBase
	mu.RUnlock()
	if base != nil {
		return base
	}

	base, err := Init(os.Getenv("LOG_ENV"))
	if err != nil {
		base, _ = zap.NewDevelopment()
		SetBase(base)
	}
	return base
}

// WithFields returns a child context whose logger carries the given fields.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, ctxKey{}, FromContext(ctx).With(fields...))
}

// FromContext returns the request-scoped logger, or the global one.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return Base()
}

// Sync flushes any buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if globalBase != nil {
		_ = globalBase.Sync()
	}
}

// GORMWriter adapts zap to gorm.io/gorm/logger.Writer.
type GORMWriter struct{}

// Printf implements gorm.io/gorm/logger.Writer.
func (w GORMWriter) Printf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	msg = strings.TrimRight(msg, "\r\n")
	Base().Named("gorm").Warn(msg)
}

// NewGORMWriter creates a new GORM writer adapter
func NewGORMWriter() GORMWriter {
	return GORMWriter{}
}
