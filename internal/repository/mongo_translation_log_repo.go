package repository

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const translationLogsCollection = "translation_logs"

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI                    string
	Database               string
	ServerSelectionTimeout time.Duration
}

// LoadMongoConfigFromEnv loads MongoDB configuration from environment variables.
// MONGODB_URI wins over the individual MONGO_* settings.
func LoadMongoConfigFromEnv() *MongoConfig {
	database := config.GetEnvOrDefault("MONGO_INITDB_DATABASE", "translation_db")

	uri := config.GetEnvOrDefault("MONGODB_URI", "")
	if uri == "" {
		host := config.GetEnvOrDefault("MONGO_HOST", "localhost")
		port := config.GetEnvOrDefault("MONGO_PORT", "27017")
		user := config.GetEnvOrDefault("MONGO_INITDB_ROOT_USERNAME", "")
		password := config.GetEnvOrDefault("MONGO_INITDB_ROOT_PASSWORD", "")

		u := url.URL{Scheme: "mongodb", Host: host + ":" + port, Path: "/"}
		if user != "" {
			u.User = url.UserPassword(user, password)
			u.RawQuery = "authSource=admin"
		}
		uri = u.String()
	}

	return &MongoConfig{
		URI:                    uri,
		Database:               database,
		ServerSelectionTimeout: 5 * time.Second,
	}
}

// mongoAuditDocument is the stored shape; the record id lives in _id
type mongoAuditDocument struct {
	ObjectID           primitive.ObjectID `bson:"_id"`
	domain.AuditRecord `bson:",inline"`
}

// MongoTranslationLogRepository implements TranslationLogRepository on a MongoDB collection
type MongoTranslationLogRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoTranslationLogRepository connects to MongoDB and ensures the timestamp index
func NewMongoTranslationLogRepository(ctx context.Context, cfg *MongoConfig) (*MongoTranslationLogRepository, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	repo := &MongoTranslationLogRepository{
		client:     client,
		collection: client.Database(cfg.Database).Collection(translationLogsCollection),
	}

	indexCtx, cancel := context.WithTimeout(ctx, cfg.ServerSelectionTimeout)
	defer cancel()
	if _, err := repo.collection.Indexes().CreateOne(indexCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	}); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create timestamp index: %w", err)
	}

	logger.Base().Info("connected to MongoDB",
		zap.String("database", cfg.Database),
		zap.String("collection", translationLogsCollection))

	return repo, nil
}

// Insert adds a translation log document
func (r *MongoTranslationLogRepository) Insert(ctx context.Context, record *domain.AuditRecord) (string, error) {
	doc := mongoAuditDocument{
		ObjectID:    primitive.NewObjectID(),
		AuditRecord: *record,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert translation log: %w", err)
	}

	record.ID = doc.ObjectID.Hex()
	return record.ID, nil
}

// ListRecent returns the newest documents first
func (r *MongoTranslationLogRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list translation logs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoAuditDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode translation logs: %w", err)
	}

	records := make([]*domain.AuditRecord, 0, len(docs))
	for i := range docs {
		rec := docs[i].AuditRecord
		rec.ID = docs[i].ObjectID.Hex()
		rec.Timestamp = rec.Timestamp.UTC()
		records = append(records, &rec)
	}
	return records, nil
}

// Ping checks the connection against the primary
func (r *MongoTranslationLogRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close disconnects the client
func (r *MongoTranslationLogRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
