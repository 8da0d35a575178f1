package handler

import (
	"net/http"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandlerManager wires handlers and middleware onto the router
type HandlerManager struct {
	config  *config.ServiceConfig
	service TranslationService
	models  ModelInventory
}

// NewHandlerManager creates a handler manager over already constructed services
func NewHandlerManager(cfg *config.ServiceConfig, service TranslationService, models ModelInventory) *HandlerManager {
	return &HandlerManager{
		config:  cfg,
		service: service,
		models:  models,
	}
}

// NewRouter builds a router with all routes registered
func (hm *HandlerManager) NewRouter() *mux.Router {
	router := mux.NewRouter()
	hm.SetupAllRoutes(router)
	return router
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	// Apply global middleware
	router.Use(RequestIDMiddleware)
	if hm.config.EnableCORS {
		router.Use(CORSMiddleware)
	}
	router.Use(GlobalLoggingMiddleware)

	hm.SetupAPIRoutes(router)

	logger.Base().Info("all application routes registered")
}

// SetupAPIRoutes sets up the translation API under /api
func (hm *HandlerManager) SetupAPIRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api").Subrouter()

	apiRouter.Use(LoggingMiddleware)
	apiRouter.Use(RateLimitMiddleware(hm.config.RateLimitRPS, hm.config.RateLimitBurst))
	apiRouter.Use(MaxBodyMiddleware(hm.config.MaxRequestBytes))
	apiRouter.Use(ValidationMiddleware)

	var historyGuard func(http.Handler) http.Handler
	if hm.config.HistorySecretKey != "" {
		historyGuard = APIKeyMiddleware(hm.config.HistorySecretKey)
		logger.Base().Info("translation history protected with api key middleware")
	}

	translationHandler := NewTranslationHandler(hm.service, hm.models)
	translationHandler.SetupTranslationRoutes(apiRouter, historyGuard)

	// CORS preflight for all API routes
	if hm.config.EnableCORS {
		router.PathPrefix("/api/").HandlerFunc(handleCORS).Methods("OPTIONS")
	}

	logger.Base().Info("translation api routes registered",
		zap.Float64("rate_limit_rps", hm.config.RateLimitRPS),
		zap.Int64("max_request_bytes", hm.config.MaxRequestBytes),
	)
}

// handleCORS handles CORS preflight requests for API routes
func handleCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
	w.WriteHeader(http.StatusOK)
}
