package translation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/core/model"
	"github.com/ClareAI/astra-translation-service/internal/core/model/provider"
	"github.com/ClareAI/astra-translation-service/internal/core/tracking"
	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandle struct {
	modelID string
	reply   func(ctx context.Context, text string) (string, error)
	params  provider.DecodingParams
}

func (h *stubHandle) ModelID() string { return h.modelID }

func (h *stubHandle) Translate(ctx context.Context, text string, params provider.DecodingParams) (string, error) {
	h.params = params
	return h.reply(ctx, text)
}

type stubBackend struct {
	loads   atomic.Int64
	reply   func(ctx context.Context, text string) (string, error)
	loadErr error
	handles sync.Map
}

func (b *stubBackend) Type() provider.BackendType { return "stub" }

func (b *stubBackend) Load(_ context.Context, lang config.Language) (provider.Handle, error) {
	b.loads.Add(1)
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	h := &stubHandle{modelID: lang.ModelID, reply: b.reply}
	b.handles.Store(lang.Code, h)
	return h, nil
}

type capturingTracker struct {
	mu   sync.Mutex
	runs []*tracking.Run
	err  error
}

func (c *capturingTracker) Track(_ context.Context, run *tracking.Run) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, run)
	return c.err
}

func (c *capturingTracker) Close() error { return nil }

func echoReply(_ context.Context, text string) (string, error) {
	return "translated:" + text, nil
}

func newTestService(t *testing.T, backend *stubBackend, tracker tracking.Tracker, opts Options) *Service {
	t.Helper()
	registry := config.DefaultLanguageRegistry()
	cache, err := model.NewCache(registry, backend, model.CacheOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return NewService(registry, cache, tracking.NewRecorder(tracker, time.Second), opts)
}

func TestTranslateSuccess(t *testing.T) {
	backend := &stubBackend{reply: func(_ context.Context, text string) (string, error) {
		if text == "Hello world" {
			return "Bonjour le monde", nil
		}
		return "", errors.New("unexpected input")
	}}
	tracker := &capturingTracker{}
	svc := newTestService(t, backend, tracker, Options{})

	result, err := svc.Translate(context.Background(), "Hello world", "fr")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour le monde", result.TranslatedText)
	assert.Equal(t, "fr", result.TargetLanguage)
	assert.Equal(t, "Helsinki-NLP/opus-mt-en-fr", result.ModelID)
	assert.GreaterOrEqual(t, result.ElapsedMillis, 0.0)

	h, ok := backend.handles.Load("fr")
	require.True(t, ok)
	assert.Equal(t, provider.DefaultDecodingParams, h.(*stubHandle).params)

	require.Len(t, tracker.runs, 1)
	run := tracker.runs[0]
	assert.Equal(t, DefaultExperiment, run.Experiment)
	assert.Equal(t, "Helsinki-NLP/opus-mt-en-fr", run.Params["model"])
	assert.Equal(t, "fr", run.Params["target_language"])
	assert.Equal(t, "11", run.Params["input_length"])
	assert.NotContains(t, run.Params, "error")
	assert.Contains(t, run.Metrics, "inference_time_ms")
	assert.Equal(t, "Hello world", run.Artifacts["input.txt"])
	assert.Equal(t, "Bonjour le monde", run.Artifacts["output.txt"])
}

func TestTranslateReusesHandle(t *testing.T) {
	backend := &stubBackend{reply: echoReply}
	svc := newTestService(t, backend, nil, Options{})

	for i := 0; i < 3; i++ {
		_, err := svc.Translate(context.Background(), "hi", "de")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, backend.loads.Load())
}

func TestTranslateUnsupportedLanguage(t *testing.T) {
	backend := &stubBackend{reply: echoReply}
	tracker := &capturingTracker{}
	svc := newTestService(t, backend, tracker, Options{})

	for _, text := range []string{"Hello", ""} {
		_, err := svc.Translate(context.Background(), text, "xx")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
		assert.NotErrorIs(t, err, domain.ErrInferenceFailure)
	}

	assert.Zero(t, backend.loads.Load())
	assert.Empty(t, tracker.runs)
}

func TestTranslateEmptyInputShortCircuits(t *testing.T) {
	backend := &stubBackend{reply: echoReply}
	tracker := &capturingTracker{}
	svc := newTestService(t, backend, tracker, Options{})

	for _, text := range []string{"", "   ", "\n\t"} {
		result, err := svc.Translate(context.Background(), text, "de")
		require.NoError(t, err)
		assert.Equal(t, "", result.TranslatedText)
		assert.Equal(t, "de", result.TargetLanguage)
		assert.Zero(t, result.ElapsedMillis)
	}

	assert.Zero(t, backend.loads.Load())
	assert.Empty(t, tracker.runs)
}

func TestTranslateInferenceFailureIsWrapped(t *testing.T) {
	rawErr := errors.New("CUDA out of memory")
	backend := &stubBackend{reply: func(context.Context, string) (string, error) {
		return "", rawErr
	}}
	tracker := &capturingTracker{}
	svc := newTestService(t, backend, tracker, Options{})

	_, err := svc.Translate(context.Background(), "Hello", "es")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInferenceFailure)
	assert.NotErrorIs(t, err, rawErr)
	assert.Contains(t, err.Error(), "CUDA out of memory")

	require.Len(t, tracker.runs, 1)
	assert.Equal(t, "CUDA out of memory", tracker.runs[0].Params["error"])
	assert.NotContains(t, tracker.runs[0].Artifacts, "output.txt")
}

func TestTranslateLoadFailureIsInferenceFailure(t *testing.T) {
	backend := &stubBackend{reply: echoReply, loadErr: errors.New("model not found")}
	tracker := &capturingTracker{}
	svc := newTestService(t, backend, tracker, Options{})

	_, err := svc.Translate(context.Background(), "Hello", "it")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInferenceFailure)
	assert.Contains(t, err.Error(), "model not found")
	require.Len(t, tracker.runs, 1)
	assert.Contains(t, tracker.runs[0].Params["error"], "model not found")
}

func TestTranslatePanicIsInferenceFailure(t *testing.T) {
	backend := &stubBackend{reply: func(context.Context, string) (string, error) {
		panic("tokenizer crashed")
	}}
	svc := newTestService(t, backend, nil, Options{})

	_, err := svc.Translate(context.Background(), "Hello", "pt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInferenceFailure)
	assert.Contains(t, err.Error(), "tokenizer crashed")
}

func TestTranslateTimeout(t *testing.T) {
	backend := &stubBackend{reply: func(ctx context.Context, _ string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "too slow", nil
		}
	}}
	svc := newTestService(t, backend, nil, Options{Timeout: 20 * time.Millisecond})

	_, err := svc.Translate(context.Background(), "Hello", "ru")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInferenceFailure)
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestTrackingFailureDoesNotAffectResult(t *testing.T) {
	backend := &stubBackend{reply: echoReply}
	tracker := &capturingTracker{err: errors.New("tracking server unreachable")}
	svc := newTestService(t, backend, tracker, Options{})

	result, err := svc.Translate(context.Background(), "Hello", "zh")
	require.NoError(t, err)
	assert.Equal(t, "translated:Hello", result.TranslatedText)
	assert.Len(t, tracker.runs, 1)
}

func TestTranslateCustomOptions(t *testing.T) {
	backend := &stubBackend{reply: echoReply}
	tracker := &capturingTracker{}
	params := provider.DecodingParams{MaxLength: 64, NumBeams: 1}
	svc := newTestService(t, backend, tracker, Options{Decoding: params, Experiment: "canary"})

	_, err := svc.Translate(context.Background(), "Hello", "de")
	require.NoError(t, err)

	h, _ := backend.handles.Load("de")
	assert.Equal(t, params, h.(*stubHandle).params)
	require.Len(t, tracker.runs, 1)
	assert.Equal(t, "canary", tracker.runs[0].Experiment)
}
