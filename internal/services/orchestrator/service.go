package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/ClareAI/astra-translation-service/internal/services/audit"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"go.uber.org/zap"
)

// ErrLimitTooLarge is returned when a history request asks for more than the configured maximum
var ErrLimitTooLarge = errors.New("limit exceeds maximum")

// Translator runs a single translation
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (*domain.TranslationResult, error)
}

// AuditLog records and lists translations
type AuditLog interface {
	Record(ctx context.Context, input, output string, meta audit.Metadata) (string, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.AuditRecord, error)
	Ping(ctx context.Context) error
}

// Options configure request handling policy
type Options struct {
	AuditFailurePolicy  config.AuditFailurePolicy
	HistoryDefaultLimit int // used for non-positive limits; zero defers to the audit log
	HistoryMaxLimit     int // zero disables the bound
}

// Service drives the translate and history flows
type Service struct {
	registry   *config.LanguageRegistry
	translator Translator
	audit      AuditLog
	opts       Options
}

// NewService creates a request orchestrator
func NewService(registry *config.LanguageRegistry, translator Translator, auditLog AuditLog, opts Options) *Service {
	if opts.AuditFailurePolicy == "" {
		opts.AuditFailurePolicy = config.AuditFailurePolicyFail
	}
	return &Service{
		registry:   registry,
		translator: translator,
		audit:      auditLog,
		opts:       opts,
	}
}

// Translate validates the request, translates it and records the outcome.
// An empty target language means DefaultTargetLanguage.
func (s *Service) Translate(ctx context.Context, req domain.TranslationRequest) (*domain.TranslationResult, error) {
	target := strings.TrimSpace(req.TargetLanguage)
	if target == "" {
		target = domain.DefaultTargetLanguage
	}

	// Validating
	if !s.registry.IsSupported(target) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedLanguage, target)
	}

	// Translating
	result, err := s.translator.Translate(ctx, req.Text, target)
	if err != nil {
		return nil, err
	}

	// Recording; nothing was produced for blank input
	if strings.TrimSpace(req.Text) == "" {
		return result, nil
	}

	_, err = s.audit.Record(ctx, req.Text, result.TranslatedText, audit.Metadata{
		ModelID:              result.ModelID,
		TargetLanguage:       result.TargetLanguage,
		InputLength:          utf8.RuneCountInString(req.Text),
		ProcessingTimeMillis: result.ElapsedMillis,
	})
	if err != nil {
		if s.opts.AuditFailurePolicy == config.AuditFailurePolicyWarn {
			logger.FromContext(ctx).Warn("audit write failed, returning translation anyway",
				zap.String("target_language", target),
				zap.Error(err))
			return result, nil
		}
		return nil, err
	}

	return result, nil
}

// History returns up to limit recent audit records, newest first.
// Non-positive limits use the default.
func (s *Service) History(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	if limit <= 0 {
		limit = s.opts.HistoryDefaultLimit
	}
	if s.opts.HistoryMaxLimit > 0 && limit > s.opts.HistoryMaxLimit {
		return nil, fmt.Errorf("%w: %d > %d", ErrLimitTooLarge, limit, s.opts.HistoryMaxLimit)
	}
	return s.audit.ListRecent(ctx, limit)
}

// Languages returns the supported languages in declaration order
func (s *Service) Languages() []config.Language {
	return s.registry.List()
}

// Ready reports whether the audit store is reachable
func (s *Service) Ready(ctx context.Context) error {
	return s.audit.Ping(ctx)
}
