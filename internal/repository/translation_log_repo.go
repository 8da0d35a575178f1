package repository

import (
	"context"
	"fmt"

	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTranslationLogRepository implements TranslationLogRepository using GORM
type GormTranslationLogRepository struct {
	db *gorm.DB
}

// NewGormTranslationLogRepository creates a new GORM translation log repository
func NewGormTranslationLogRepository(db *gorm.DB) *GormTranslationLogRepository {
	return &GormTranslationLogRepository{db: db}
}

// NewGormTranslationLogRepositoryFromConfig opens the database and runs migrations
func NewGormTranslationLogRepositoryFromConfig(config *DatabaseConfig) (*GormTranslationLogRepository, error) {
	db, err := NewDatabaseConnection(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to run auto migration: %w", err)
	}

	return NewGormTranslationLogRepository(db), nil
}

// Insert creates a new translation log row
func (r *GormTranslationLogRepository) Insert(ctx context.Context, record *domain.AuditRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", fmt.Errorf("failed to insert translation log: %w", err)
	}

	return record.ID, nil
}

// ListRecent retrieves the most recent translation logs
func (r *GormTranslationLogRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	var records []*domain.AuditRecord
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list translation logs: %w", err)
	}

	for _, rec := range records {
		rec.Timestamp = rec.Timestamp.UTC()
	}
	return records, nil
}

// Ping checks the database connection
func (r *GormTranslationLogRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (r *GormTranslationLogRepository) Close(_ context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
