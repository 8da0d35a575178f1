package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ClareAI/astra-translation-service/pkg/gcs"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"github.com/ClareAI/astra-translation-service/pkg/pubsub"
	"github.com/ClareAI/astra-translation-service/pkg/redis"
	"go.uber.org/zap"
)

// LogTracker writes each run as a structured log entry
type LogTracker struct{}

func (LogTracker) Track(ctx context.Context, run *Run) error {
	fields := []zap.Field{
		zap.String("experiment", run.Experiment),
		zap.String("run_id", run.RunID),
		zap.Any("params", run.Params),
		zap.Any("metrics", run.Metrics),
	}
	if len(run.Artifacts) > 0 {
		names := make([]string, 0, len(run.Artifacts))
		for name := range run.Artifacts {
			names = append(names, name)
		}
		sort.Strings(names)
		fields = append(fields, zap.Strings("artifacts", names))
	}
	logger.FromContext(ctx).Info("tracking run", fields...)
	return nil
}

func (LogTracker) Close() error { return nil }

// defaultStreamMaxLen keeps the runs stream from growing without bound
const defaultStreamMaxLen = 100000

// RedisTracker appends runs to a Redis stream named tracking:<experiment>:runs
type RedisTracker struct {
	redis  redis.RedisServiceInterface
	maxLen int64
}

func NewRedisTracker(svc redis.RedisServiceInterface) *RedisTracker {
	return &RedisTracker{redis: svc, maxLen: defaultStreamMaxLen}
}

func (t *RedisTracker) Track(ctx context.Context, run *Run) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	artifacts, err := json.Marshal(run.Artifacts)
	if err != nil {
		return fmt.Errorf("failed to marshal artifacts: %w", err)
	}

	stream := t.redis.StreamKey("tracking", run.Experiment, "runs")
	_, err = t.redis.AppendToStream(ctx, stream, t.maxLen, map[string]interface{}{
		"run_id":     run.RunID,
		"started_at": run.StartedAt.Format("2006-01-02T15:04:05.000000Z07:00"),
		"params":     string(params),
		"metrics":    string(metrics),
		"artifacts":  string(artifacts),
	})
	if err != nil {
		return fmt.Errorf("redis tracking: %w", err)
	}
	return nil
}

func (t *RedisTracker) Close() error {
	return t.redis.Close()
}

// PubSubTracker publishes each run as JSON to a Pub/Sub topic
type PubSubTracker struct {
	publisher pubsub.Publisher
}

func NewPubSubTracker(publisher pubsub.Publisher) *PubSubTracker {
	return &PubSubTracker{publisher: publisher}
}

func (t *PubSubTracker) Track(ctx context.Context, run *Run) error {
	_, err := t.publisher.PublishJSON(ctx, run, map[string]string{
		"experiment": run.Experiment,
		"run_id":     run.RunID,
	})
	if err != nil {
		return fmt.Errorf("pubsub tracking: %w", err)
	}
	return nil
}

func (t *PubSubTracker) Close() error {
	return t.publisher.Close()
}

// GCSArtifactTracker uploads run artifacts and a run.json summary under <experiment>/<run_id>/
type GCSArtifactTracker struct {
	writer gcs.ObjectWriter
}

func NewGCSArtifactTracker(writer gcs.ObjectWriter) *GCSArtifactTracker {
	return &GCSArtifactTracker{writer: writer}
}

func (t *GCSArtifactTracker) Track(ctx context.Context, run *Run) error {
	prefix := path.Join(run.Experiment, run.RunID)

	names := make([]string, 0, len(run.Artifacts))
	for name := range run.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		objectPath := path.Join(prefix, name)
		if _, err := t.writer.Upload(ctx, objectPath, "text/plain; charset=utf-8", strings.NewReader(run.Artifacts[name])); err != nil {
			return fmt.Errorf("gcs artifact %s: %w", name, err)
		}
	}

	summary := struct {
		Experiment string             `json:"experiment"`
		RunID      string             `json:"run_id"`
		StartedAt  string             `json:"started_at"`
		Params     map[string]string  `json:"params"`
		Metrics    map[string]float64 `json:"metrics"`
		Artifacts  []string           `json:"artifacts"`
	}{run.Experiment, run.RunID, run.StartedAt.Format("2006-01-02T15:04:05.000Z07:00"), run.Params, run.Metrics, names}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	if _, err := t.writer.Upload(ctx, path.Join(prefix, "run.json"), "application/json", strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("gcs run summary: %w", err)
	}
	return nil
}

func (t *GCSArtifactTracker) Close() error {
	return t.writer.Close()
}
