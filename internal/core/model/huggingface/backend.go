package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/core/model/provider"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrModelNotFound is returned by Load when the server does not know the model id.
var ErrModelNotFound = errors.New("model not found")

// maxErrorBody caps how much of an error response is copied into error messages.
const maxErrorBody = 2048

// Config holds the Hugging Face inference server settings
type Config struct {
	BaseURL   string
	APIToken  string
	Timeout   time.Duration
	RateLimit float64 // requests per second across all models, 0 disables limiting
}

// Backend talks to a server exposing the Hugging Face Inference API model routes.
type Backend struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewBackend creates a new Hugging Face inference backend
func NewBackend(cfg Config) *Backend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	b := &Backend{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return b
}

// Type returns the backend type
func (b *Backend) Type() provider.BackendType {
	return provider.BackendTypeHuggingFace
}

// Load checks that the server serves lang.ModelID and returns a handle bound to it.
func (b *Backend) Load(ctx context.Context, lang config.Language) (provider.Handle, error) {
	start := time.Now()

	req, err := b.newRequest(ctx, http.MethodGet, lang.ModelID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach inference server: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, lang.ModelID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("load %s failed with status %d: %s", lang.ModelID, resp.StatusCode, readErrorBody(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.Base().Info("model loaded",
		zap.String("backend", b.Type().String()),
		zap.String("language", lang.Code),
		zap.String("model", lang.ModelID),
		zap.Duration("latency", time.Since(start)),
	)

	return &handle{backend: b, modelID: lang.ModelID}, nil
}

type inferenceRequest struct {
	Inputs     string                  `json:"inputs"`
	Parameters provider.DecodingParams `json:"parameters"`
}

type inferenceOutput struct {
	TranslationText string `json:"translation_text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handle struct {
	backend *Backend
	modelID string
}

func (h *handle) ModelID() string {
	return h.modelID
}

func (h *handle) Translate(ctx context.Context, text string, params provider.DecodingParams) (string, error) {
	if h.backend.limiter != nil {
		if err := h.backend.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(inferenceRequest{Inputs: text, Parameters: params})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := h.backend.newRequest(ctx, http.MethodPost, h.modelID, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.backend.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var outputs []inferenceOutput
	if err := json.NewDecoder(resp.Body).Decode(&outputs); err != nil {
		return "", fmt.Errorf("failed to decode inference response: %w", err)
	}
	if len(outputs) == 0 {
		return "", fmt.Errorf("no translation returned")
	}

	return outputs[0].TranslationText, nil
}

func (b *Backend) newRequest(ctx context.Context, method, modelID string, body io.Reader) (*http.Request, error) {
	endpoint := b.baseURL + "/models/" + escapeModelID(modelID)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if b.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiToken)
	}
	return req, nil
}

// escapeModelID keeps the "org/name" separator but escapes each segment.
func escapeModelID(modelID string) string {
	parts := strings.Split(modelID, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Error != "" {
		return er.Error
	}
	return strings.TrimSpace(string(data))
}
