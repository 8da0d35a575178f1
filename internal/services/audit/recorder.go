package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/ClareAI/astra-translation-service/internal/repository"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"go.uber.org/zap"
)

// DefaultListLimit is used when a caller asks for a non-positive number of records
const DefaultListLimit = 10

// Metadata describes how a translation was produced
type Metadata struct {
	ModelID              string
	TargetLanguage       string
	InputLength          int
	ProcessingTimeMillis float64
}

// Recorder persists translation audit records
type Recorder struct {
	repo repository.TranslationLogRepository
	now  func() time.Time
}

// NewRecorder creates a recorder over repo
func NewRecorder(repo repository.TranslationLogRepository) *Recorder {
	return &Recorder{
		repo: repo,
		now:  time.Now,
	}
}

// WithClock overrides the timestamp source
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record stores one input/output pair stamped with the current UTC time and returns its id.
func (r *Recorder) Record(ctx context.Context, input, output string, meta Metadata) (string, error) {
	record := &domain.AuditRecord{
		InputText:            input,
		OutputText:           output,
		Timestamp:            r.now().UTC(),
		ModelID:              meta.ModelID,
		TargetLanguage:       meta.TargetLanguage,
		InputLength:          meta.InputLength,
		ProcessingTimeMillis: meta.ProcessingTimeMillis,
	}

	id, err := r.repo.Insert(ctx, record)
	if err != nil {
		logger.FromContext(ctx).Error("failed to record translation",
			zap.String("target_language", meta.TargetLanguage),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	logger.FromContext(ctx).Debug("translation recorded", zap.String("record_id", id))
	return id, nil
}

// ListRecent returns up to limit records, newest first
func (r *Recorder) ListRecent(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	records, err := r.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return records, nil
}

// Ping probes the backing store
func (r *Recorder) Ping(ctx context.Context) error {
	if err := r.repo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}
