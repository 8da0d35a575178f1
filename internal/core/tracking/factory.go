package tracking

import (
	"context"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/pkg/gcs"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"github.com/ClareAI/astra-translation-service/pkg/pubsub"
	"github.com/ClareAI/astra-translation-service/pkg/redis"
	"go.uber.org/zap"
)

// NewTrackerFromConfig builds a MultiTracker from the configured sinks.
// The log sink is always on; a sink that cannot be reached at startup is logged and skipped.
func NewTrackerFromConfig(ctx context.Context, cfg config.TrackingConfig) *MultiTracker {
	log := logger.Base()
	trackers := []Tracker{LogTracker{}}

	if cfg.RedisAddr != "" {
		svc, err := redis.NewRedisService(&redis.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn("redis tracking sink unavailable, skipping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			trackers = append(trackers, NewRedisTracker(svc))
			log.Info("redis tracking sink enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	if cfg.PubSubProject != "" {
		svc, err := pubsub.NewPubSubService(ctx, &pubsub.PubSubConfig{
			ProjectID: cfg.PubSubProject,
			TopicName: cfg.PubSubTopic,
		})
		if err != nil {
			log.Warn("pubsub tracking sink unavailable, skipping", zap.String("project", cfg.PubSubProject), zap.Error(err))
		} else {
			trackers = append(trackers, NewPubSubTracker(svc))
			log.Info("pubsub tracking sink enabled", zap.String("topic", cfg.PubSubTopic))
		}
	}

	if cfg.GCSBucket != "" {
		client, err := gcs.NewGCSClient(ctx, cfg.GCSBucket)
		if err != nil {
			log.Warn("gcs tracking sink unavailable, skipping", zap.String("bucket", cfg.GCSBucket), zap.Error(err))
		} else {
			trackers = append(trackers, NewGCSArtifactTracker(client))
			log.Info("gcs artifact tracking sink enabled", zap.String("bucket", cfg.GCSBucket))
		}
	}

	return NewMultiTracker(trackers...)
}
