package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AuditFailurePolicy decides what a translate request reports when the audit write fails.
type AuditFailurePolicy string

const (
	// AuditFailurePolicyFail reports the request as failed even though a translation was produced.
	AuditFailurePolicyFail AuditFailurePolicy = "fail"
	// AuditFailurePolicyWarn logs the audit failure and returns the translation.
	AuditFailurePolicyWarn AuditFailurePolicy = "warn"
)

// ServiceConfig holds the translation service configuration
type ServiceConfig struct {
	Port    string
	LogEnv  string
	Version string

	// Inference
	InferenceBackend   string
	InferenceBaseURL   string
	InferenceAPIToken  string
	InferenceTimeout   time.Duration
	InferenceRateLimit float64
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string

	// Model cache
	ModelCacheMaxEntries int
	ModelPreload         []string

	// Audit store
	AuditStore         string
	AuditFailurePolicy AuditFailurePolicy

	// HTTP hardening
	HistoryDefaultLimit int
	HistoryMaxLimit     int
	MaxRequestBytes     int64
	RateLimitRPS        float64
	RateLimitBurst      int
	HistorySecretKey    string
	EnableCORS          bool

	Tracking TrackingConfig
}

// TrackingConfig selects the experiment-tracking sinks. Empty values disable a sink.
type TrackingConfig struct {
	Experiment    string
	Timeout       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PubSubProject string
	PubSubTopic   string
	GCSBucket     string
}

// LoadServiceConfig loads configuration from environment variables
func LoadServiceConfig() *ServiceConfig {
	cfg := &ServiceConfig{
		Port:    GetEnvOrDefault("PORT", "8000"),
		LogEnv:  GetEnvOrDefault("LOG_ENV", "development"),
		Version: GetEnvOrDefault("SERVICE_VERSION", "dev"),

		InferenceBackend:   strings.ToLower(GetEnvOrDefault("INFERENCE_BACKEND", "huggingface")),
		InferenceBaseURL:   GetEnvOrDefault("INFERENCE_BASE_URL", "http://localhost:8080"),
		InferenceAPIToken:  GetEnvOrDefault("INFERENCE_API_TOKEN", ""),
		InferenceTimeout:   GetEnvAsDurationOrDefault("INFERENCE_TIMEOUT", 0),
		InferenceRateLimit: GetEnvAsFloatOrDefault("INFERENCE_RATE_LIMIT", 0),
		OpenAIAPIKey:       GetEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      GetEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIModel:        GetEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),

		ModelCacheMaxEntries: GetEnvAsIntOrDefault("MODEL_CACHE_MAX_ENTRIES", 0),
		ModelPreload:         SplitAndTrimStrings(os.Getenv("MODEL_PRELOAD"), ","),

		AuditStore:         strings.ToLower(GetEnvOrDefault("AUDIT_STORE", "mongo")),
		AuditFailurePolicy: AuditFailurePolicy(strings.ToLower(GetEnvOrDefault("AUDIT_FAILURE_POLICY", string(AuditFailurePolicyFail)))),

		HistoryDefaultLimit: GetEnvAsIntOrDefault("HISTORY_DEFAULT_LIMIT", 10),
		HistoryMaxLimit:     GetEnvAsIntOrDefault("HISTORY_MAX_LIMIT", 100),
		MaxRequestBytes:     int64(GetEnvAsIntOrDefault("MAX_REQUEST_BYTES", 1<<20)),
		RateLimitRPS:        GetEnvAsFloatOrDefault("RATE_LIMIT_RPS", 0),
		RateLimitBurst:      GetEnvAsIntOrDefault("RATE_LIMIT_BURST", 10),
		HistorySecretKey:    GetEnvOrDefault("HISTORY_SECRET_KEY", ""),
		EnableCORS:          GetEnvAsBoolOrDefault("ENABLE_CORS", true),

		Tracking: TrackingConfig{
			Experiment:    GetEnvOrDefault("TRACKING_EXPERIMENT", "translation_service"),
			Timeout:       GetEnvAsDurationOrDefault("TRACKING_TIMEOUT", 2*time.Second),
			RedisAddr:     GetEnvOrDefault("TRACKING_REDIS_ADDR", ""),
			RedisPassword: GetEnvOrDefault("TRACKING_REDIS_PASSWORD", ""),
			RedisDB:       GetEnvAsIntOrDefault("TRACKING_REDIS_DB", 0),
			PubSubProject: GetEnvOrDefault("TRACKING_PUBSUB_PROJECT", ""),
			PubSubTopic:   GetEnvOrDefault("TRACKING_PUBSUB_TOPIC", "translation-runs"),
			GCSBucket:     GetEnvOrDefault("TRACKING_GCS_BUCKET", ""),
		},
	}

	if cfg.AuditFailurePolicy != AuditFailurePolicyWarn {
		cfg.AuditFailurePolicy = AuditFailurePolicyFail
	}
	if cfg.HistoryMaxLimit > 0 && cfg.HistoryDefaultLimit > cfg.HistoryMaxLimit {
		cfg.HistoryDefaultLimit = cfg.HistoryMaxLimit
	}

	return cfg
}

// GetEnvOrDefault gets environment variable or returns default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsIntOrDefault gets environment variable as int or returns default
func GetEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloatOrDefault gets environment variable as float64 or returns default
func GetEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvAsBoolOrDefault gets environment variable as bool or returns default
func GetEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDurationOrDefault accepts Go durations ("1500ms") or plain seconds ("30").
func GetEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// SplitAndTrimStrings splits a string by delimiter and trims whitespace from each part
func SplitAndTrimStrings(s, delimiter string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, delimiter)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
