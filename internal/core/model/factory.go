package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/core/model/huggingface"
	"github.com/ClareAI/astra-translation-service/internal/core/model/openai"
	"github.com/ClareAI/astra-translation-service/internal/core/model/provider"
)

// BackendConstructor builds a backend from the service configuration
type BackendConstructor func(cfg *config.ServiceConfig) (provider.Backend, error)

// BackendFactory creates inference backends by type
type BackendFactory struct {
	constructors map[provider.BackendType]BackendConstructor
	mutex        sync.RWMutex
}

// NewBackendFactory creates a new backend factory with default backends registered
func NewBackendFactory() *BackendFactory {
	factory := &BackendFactory{
		constructors: make(map[provider.BackendType]BackendConstructor),
	}

	factory.Register(provider.BackendTypeHuggingFace, func(cfg *config.ServiceConfig) (provider.Backend, error) {
		return huggingface.NewBackend(huggingface.Config{
			BaseURL:   cfg.InferenceBaseURL,
			APIToken:  cfg.InferenceAPIToken,
			RateLimit: cfg.InferenceRateLimit,
		}), nil
	})

	factory.Register(provider.BackendTypeOpenAI, func(cfg *config.ServiceConfig) (provider.Backend, error) {
		return openai.NewBackend(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	})

	return factory
}

// Register registers a backend constructor, replacing any previous one for the type
func (f *BackendFactory) Register(backendType provider.BackendType, constructor BackendConstructor) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.constructors[backendType] = constructor
}

// Create builds the backend named by backendType
func (f *BackendFactory) Create(backendType provider.BackendType, cfg *config.ServiceConfig) (provider.Backend, error) {
	f.mutex.RLock()
	constructor, exists := f.constructors[backendType]
	f.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported inference backend: %s", backendType)
	}
	return constructor(cfg)
}

// SupportedBackends returns the registered backend types, sorted
func (f *BackendFactory) SupportedBackends() []provider.BackendType {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	backends := make([]provider.BackendType, 0, len(f.constructors))
	for backendType := range f.constructors {
		backends = append(backends, backendType)
	}
	sort.Slice(backends, func(i, j int) bool { return backends[i] < backends[j] })
	return backends
}
