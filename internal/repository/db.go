package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClareAI/astra-translation-service/internal/domain"
)

// Supported audit store kinds
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// TranslationLogRepository defines the append-only audit log store
type TranslationLogRepository interface {
	// Insert persists a record and returns its generated id
	Insert(ctx context.Context, record *domain.AuditRecord) (string, error)

	// ListRecent returns up to limit records, newest first
	ListRecent(ctx context.Context, limit int) ([]*domain.AuditRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close(ctx context.Context) error
}

// NewTranslationLogRepository opens the store selected by kind and verifies it is reachable.
func NewTranslationLogRepository(ctx context.Context, kind string) (TranslationLogRepository, error) {
	var (
		repo TranslationLogRepository
		err  error
	)

	switch strings.ToLower(kind) {
	case StoreMongo, "":
		repo, err = NewMongoTranslationLogRepository(ctx, LoadMongoConfigFromEnv())
	case StorePostgres, StoreSQLite:
		cfg := LoadDatabaseConfigFromEnv()
		cfg.Driver = strings.ToLower(kind)
		repo, err = NewGormTranslationLogRepositoryFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unknown audit store %q", kind)
	}
	if err != nil {
		return nil, err
	}

	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close(ctx)
		return nil, fmt.Errorf("failed to ping %s audit store: %w", kind, err)
	}

	return repo, nil
}
