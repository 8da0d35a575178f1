package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/core/model/provider"
	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// CacheOptions configures a Cache
type CacheOptions struct {
	// MaxEntries bounds the number of loaded handles. Zero or negative keeps every
	// supported language loaded once acquired.
	MaxEntries int
}

// Cache lazily loads and retains one handle per language code.
//
// At most one load is in flight per code: concurrent Acquire calls for a code that is
// loading wait for that load. Loads for different codes run independently.
type Cache struct {
	registry *config.LanguageRegistry
	backend  provider.Backend
	handles  *lru.Cache[string, provider.Handle]
	group    singleflight.Group

	loads  atomic.Int64
	closed atomic.Bool
}

// NewCache creates a model cache over the registry's languages
func NewCache(registry *config.LanguageRegistry, backend provider.Backend, opts CacheOptions) (*Cache, error) {
	if registry == nil || backend == nil {
		return nil, fmt.Errorf("registry and backend are required")
	}

	size := registry.Len()
	if opts.MaxEntries > 0 && opts.MaxEntries < size {
		size = opts.MaxEntries
	}
	if size < 1 {
		size = 1
	}

	handles, err := lru.NewWithEvict(size, func(code string, h provider.Handle) {
		if err := closeHandle(h); err != nil {
			logger.Base().Warn("failed to close evicted model", zap.String("language", code), zap.Error(err))
			return
		}
		logger.Base().Info("model evicted", zap.String("language", code), zap.String("model", h.ModelID()))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model store: %w", err)
	}

	return &Cache{
		registry: registry,
		backend:  backend,
		handles:  handles,
	}, nil
}

// Acquire returns the handle for code, loading it on first use.
func (c *Cache) Acquire(ctx context.Context, code string) (provider.Handle, error) {
	if c.closed.Load() {
		return nil, domain.ErrCacheClosed
	}
	if h, ok := c.handles.Get(code); ok {
		return h, nil
	}

	lang, err := c.registry.Resolve(code)
	if err != nil {
		return nil, err
	}

	// The load is shared by every waiter, so it must not die with the first caller's request.
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(code, func() (interface{}, error) {
		if h, ok := c.handles.Get(code); ok {
			return h, nil
		}
		return c.load(loadCtx, lang)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Base().Debug("joined in-flight model load", zap.String("language", code))
	}
	return v.(provider.Handle), nil
}

func (c *Cache) load(ctx context.Context, lang config.Language) (provider.Handle, error) {
	start := time.Now()
	c.loads.Add(1)

	h, err := c.backend.Load(ctx, lang)
	if err != nil {
		logger.Base().Error("model load failed",
			zap.String("language", lang.Code),
			zap.String("model", lang.ModelID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("load model %s: %w", lang.ModelID, err)
	}
	if h == nil {
		return nil, fmt.Errorf("load model %s: backend returned no handle", lang.ModelID)
	}

	if c.closed.Load() {
		_ = closeHandle(h)
		return nil, domain.ErrCacheClosed
	}
	c.handles.Add(lang.Code, h)

	logger.Base().Info("model cached",
		zap.String("language", lang.Code),
		zap.String("model", h.ModelID()),
		zap.Duration("load_time", time.Since(start)),
		zap.Int("cached_models", c.handles.Len()),
	)
	return h, nil
}

// Preload acquires the given codes concurrently and returns the first failure.
func (c *Cache) Preload(ctx context.Context, codes ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, code := range codes {
		g.Go(func() error {
			if _, err := c.Acquire(gctx, code); err != nil {
				return fmt.Errorf("preload %s: %w", code, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Loaded returns the codes currently held, least recently used first.
func (c *Cache) Loaded() []string {
	return c.handles.Keys()
}

// LoadCount returns how many backend loads have been started.
func (c *Cache) LoadCount() int64 {
	return c.loads.Load()
}

// Close releases every handle. Acquire fails with domain.ErrCacheClosed afterwards.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.handles.Purge()
	return nil
}

func closeHandle(h provider.Handle) error {
	closer, ok := h.(io.Closer)
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
