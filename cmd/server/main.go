package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/core/model"
	"github.com/ClareAI/astra-translation-service/internal/core/model/provider"
	"github.com/ClareAI/astra-translation-service/internal/core/tracking"
	"github.com/ClareAI/astra-translation-service/internal/handler"
	"github.com/ClareAI/astra-translation-service/internal/repository"
	"github.com/ClareAI/astra-translation-service/internal/services/audit"
	"github.com/ClareAI/astra-translation-service/internal/services/orchestrator"
	"github.com/ClareAI/astra-translation-service/internal/services/translation"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Server represents the translation service
type Server struct {
	config     *config.ServiceConfig
	router     *mux.Router
	httpServer *http.Server
	repo       repository.TranslationLogRepository
	cache      *model.Cache
	tracker    *tracking.Recorder
}

// NewServer builds every dependency and fails fast when the audit store is unreachable
func NewServer(ctx context.Context, cfg *config.ServiceConfig) (*Server, error) {
	registry := config.DefaultLanguageRegistry()

	// Audit store; the constructor pings before returning
	repo, err := repository.NewTranslationLogRepository(ctx, cfg.AuditStore)
	if err != nil {
		return nil, fmt.Errorf("audit store unavailable: %w", err)
	}
	logger.Base().Info("audit store connected", zap.String("store", cfg.AuditStore))

	// Inference backend and model cache
	backend, err := model.NewBackendFactory().Create(provider.BackendType(cfg.InferenceBackend), cfg)
	if err != nil {
		_ = repo.Close(ctx)
		return nil, fmt.Errorf("failed to create inference backend: %w", err)
	}

	cache, err := model.NewCache(registry, backend, model.CacheOptions{MaxEntries: cfg.ModelCacheMaxEntries})
	if err != nil {
		_ = repo.Close(ctx)
		return nil, fmt.Errorf("failed to create model cache: %w", err)
	}

	if len(cfg.ModelPreload) > 0 {
		if err := cache.Preload(ctx, cfg.ModelPreload...); err != nil {
			logger.Base().Warn("model preload incomplete, remaining models load on demand",
				zap.Strings("codes", cfg.ModelPreload),
				zap.Error(err))
		} else {
			logger.Base().Info("models preloaded", zap.Strings("codes", cache.Loaded()))
		}
	}

	// Experiment tracking
	tracker := tracking.NewRecorder(tracking.NewTrackerFromConfig(ctx, cfg.Tracking), cfg.Tracking.Timeout)

	translator := translation.NewService(registry, cache, tracker, translation.Options{
		Timeout:    cfg.InferenceTimeout,
		Experiment: cfg.Tracking.Experiment,
	})
	orchestratorService := orchestrator.NewService(registry, translator, audit.NewRecorder(repo), orchestrator.Options{
		AuditFailurePolicy:  cfg.AuditFailurePolicy,
		HistoryDefaultLimit: cfg.HistoryDefaultLimit,
		HistoryMaxLimit:     cfg.HistoryMaxLimit,
	})

	router := handler.NewHandlerManager(cfg, orchestratorService, cache).NewRouter()

	return &Server{
		config: cfg,
		router: router,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		repo:    repo,
		cache:   cache,
		tracker: tracker,
	}, nil
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	logger.Base().Info("Starting server",
		zap.String("addr", s.httpServer.Addr),
		zap.String("backend", s.config.InferenceBackend),
		zap.String("version", s.config.Version))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then releases models, tracking sinks and the store
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	err = multierr.Append(err, s.cache.Close())
	err = multierr.Append(err, s.tracker.Close())
	err = multierr.Append(err, s.repo.Close(ctx))
	return err
}

func main() {
	// Load .env file for local development if it exists
	// This will not override environment variables set by Helm/Docker
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := config.LoadServiceConfig()

	if _, err := logger.Init(cfg.LogEnv); err != nil {
		log.Printf("Failed to initialize zap logger, falling back to development logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := NewServer(ctx, cfg)
	if err != nil {
		logger.Base().Fatal("Failed to create server", zap.Error(err))
	}
	logger.Base().Info("Server initialized successfully", zap.String("port", cfg.Port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Base().Error("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Base().Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Base().Error("Shutdown completed with errors", zap.Error(err))
		return
	}
	logger.Base().Info("Server stopped")
}
