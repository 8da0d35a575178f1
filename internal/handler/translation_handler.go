package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/ClareAI/astra-translation-service/internal/services/orchestrator"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// TranslationService is what the HTTP layer needs from the orchestrator
type TranslationService interface {
	Translate(ctx context.Context, req domain.TranslationRequest) (*domain.TranslationResult, error)
	History(ctx context.Context, limit int) ([]*domain.AuditRecord, error)
	Languages() []config.Language
	Ready(ctx context.Context) error
}

// ModelInventory reports which language models are resident
type ModelInventory interface {
	Loaded() []string
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// TranslationLogResponse is one history entry as rendered to clients
type TranslationLogResponse struct {
	ID                   string  `json:"id"`
	InputText            string  `json:"input_text"`
	OutputText           string  `json:"output_text"`
	Timestamp            string  `json:"timestamp"`
	ModelID              string  `json:"model"`
	TargetLanguage       string  `json:"target_language"`
	InputLength          int     `json:"input_length"`
	ProcessingTimeMillis float64 `json:"processing_time_ms"`
}

// HealthResponse reports liveness and which models are loaded
type HealthResponse struct {
	Status       string   `json:"status"`
	LoadedModels []string `json:"loaded_models"`
}

// LanguageMap renders languages as a JSON object of code to display name, keeping declaration order
type LanguageMap []config.Language

func (m LanguageMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, lang := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(lang.Code)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(lang.DisplayName)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var timestampConverter = copier.TypeConverter{
	SrcType: time.Time{},
	DstType: copier.String,
	Fn: func(src interface{}) (interface{}, error) {
		t, ok := src.(time.Time)
		if !ok {
			return nil, errors.New("timestamp is not a time.Time")
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	},
}

// TranslationHandler handles HTTP requests for translation
type TranslationHandler struct {
	service TranslationService
	models  ModelInventory
}

// NewTranslationHandler creates a new translation handler
func NewTranslationHandler(service TranslationService, models ModelInventory) *TranslationHandler {
	return &TranslationHandler{
		service: service,
		models:  models,
	}
}

// SetupTranslationRoutes registers the translation API on apiRouter.
// historyGuard wraps the history route; pass nil for none.
func (h *TranslationHandler) SetupTranslationRoutes(apiRouter *mux.Router, historyGuard func(http.Handler) http.Handler) {
	apiRouter.HandleFunc("/translate", h.Translate).Methods("POST")
	apiRouter.HandleFunc("/languages", h.Languages).Methods("GET")
	apiRouter.HandleFunc("/health", h.Health).Methods("GET")

	var history http.Handler = http.HandlerFunc(h.History)
	if historyGuard != nil {
		history = historyGuard(history)
	}
	apiRouter.Handle("/translations", history).Methods("GET")
}

// Translate godoc
// @Summary Translate English text
// @Description Translate English text into a supported target language (default "de")
// @Tags translation
// @Accept json
// @Produce json
// @Param request body domain.TranslationRequest true "Translation request"
// @Success 200 {object} domain.TranslationResult "Translation"
// @Failure 400 {object} ErrorResponse "Invalid request body or unsupported language"
// @Failure 500 {object} ErrorResponse "Translation or storage failure"
// @Router /api/translate [post]
func (h *TranslationHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req domain.TranslationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Translate(r.Context(), req)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Languages godoc
// @Summary List supported languages
// @Description Ordered mapping of language code to display name
// @Tags translation
// @Produce json
// @Success 200 {object} map[string]string "Supported languages"
// @Router /api/languages [get]
func (h *TranslationHandler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LanguageMap(h.service.Languages()))
}

// History godoc
// @Summary Recent translations
// @Description Most recent translation audit records, newest first
// @Tags translation
// @Produce json
// @Param limit query int false "Maximum number of records (default 10)"
// @Success 200 {array} TranslationLogResponse "Recent translations"
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Failure 500 {object} ErrorResponse "Storage failure"
// @Router /api/translations [get]
func (h *TranslationHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	records, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}

	response := make([]TranslationLogResponse, 0, len(records))
	if len(records) > 0 {
		if err := copier.CopyWithOption(&response, records, copier.Option{
			Converters: []copier.TypeConverter{timestampConverter},
		}); err != nil {
			logger.FromContext(r.Context()).Error("failed to render translation history", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// Health godoc
// @Summary Health check
// @Description Reports audit store reachability and loaded models
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse "Healthy"
// @Failure 503 {object} ErrorResponse "Audit store unreachable"
// @Router /api/health [get]
func (h *TranslationHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		logger.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	loaded := []string{}
	if h.models != nil {
		loaded = append(loaded, h.models.Loaded()...)
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", LoadedModels: loaded})
}

// writeServiceError maps service errors to status codes with a stable message
func (h *TranslationHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)

	switch {
	case errors.Is(err, domain.ErrUnsupportedLanguage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrLimitTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInferenceFailure):
		log.Error("translation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, domain.ErrInferenceFailure.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		log.Error("audit store failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, domain.ErrStorageUnavailable.Error())
	default:
		log.Error("unexpected service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Base().Warn("failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
