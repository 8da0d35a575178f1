package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/core/model"
	"github.com/ClareAI/astra-translation-service/internal/core/model/provider"
	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/ClareAI/astra-translation-service/internal/repository"
	"github.com/ClareAI/astra-translation-service/internal/services/audit"
	"github.com/ClareAI/astra-translation-service/internal/services/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dictionaryHandle struct {
	modelID string
	phrases map[string]string
}

func (h *dictionaryHandle) ModelID() string { return h.modelID }

func (h *dictionaryHandle) Translate(_ context.Context, text string, _ provider.DecodingParams) (string, error) {
	if out, ok := h.phrases[text]; ok {
		return out, nil
	}
	return "", errors.New("no translation for " + text)
}

type dictionaryBackend struct {
	mu    sync.Mutex
	loads int
}

func (b *dictionaryBackend) Type() provider.BackendType { return "dictionary" }

func (b *dictionaryBackend) Load(_ context.Context, lang config.Language) (provider.Handle, error) {
	b.mu.Lock()
	b.loads++
	b.mu.Unlock()
	return &dictionaryHandle{modelID: lang.ModelID, phrases: map[string]string{
		"Hello world": map[string]string{"fr": "Bonjour le monde", "de": "Hallo Welt"}[lang.Code],
	}}, nil
}

type fakeAudit struct {
	recordErr error
	listErr   error
	records   []*domain.AuditRecord
	lastLimit int
}

func (f *fakeAudit) Record(_ context.Context, input, output string, meta audit.Metadata) (string, error) {
	if f.recordErr != nil {
		return "", f.recordErr
	}
	f.records = append(f.records, &domain.AuditRecord{
		InputText:      input,
		OutputText:     output,
		TargetLanguage: meta.TargetLanguage,
		ModelID:        meta.ModelID,
		InputLength:    meta.InputLength,
	})
	return "id", nil
}

func (f *fakeAudit) ListRecent(_ context.Context, limit int) ([]*domain.AuditRecord, error) {
	f.lastLimit = limit
	return f.records, f.listErr
}

func (f *fakeAudit) Ping(context.Context) error { return f.listErr }

type harness struct {
	svc     *Service
	backend *dictionaryBackend
}

func newHarness(t *testing.T, auditLog AuditLog, opts Options) *harness {
	t.Helper()
	registry := config.DefaultLanguageRegistry()
	backend := &dictionaryBackend{}
	cache, err := model.NewCache(registry, backend, model.CacheOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	translator := translation.NewService(registry, cache, nil, translation.Options{})
	return &harness{
		svc:     NewService(registry, translator, auditLog, opts),
		backend: backend,
	}
}

func newSQLiteAudit(t *testing.T) *audit.Recorder {
	t.Helper()
	repo, err := repository.NewGormTranslationLogRepositoryFromConfig(&repository.DatabaseConfig{
		Driver:     repository.StoreSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "audit.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return audit.NewRecorder(repo)
}

func TestHelloWorldToFrenchWritesOneAuditRecord(t *testing.T) {
	recorder := newSQLiteAudit(t)
	h := newHarness(t, recorder, Options{})
	ctx := context.Background()

	result, err := h.svc.Translate(ctx, domain.TranslationRequest{Text: "Hello world", TargetLanguage: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour le monde", result.TranslatedText)
	assert.Equal(t, "fr", result.TargetLanguage)

	records, err := h.svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "fr", rec.TargetLanguage)
	assert.Equal(t, "Hello world", rec.InputText)
	assert.Equal(t, "Bonjour le monde", rec.OutputText)
	assert.Equal(t, 11, rec.InputLength)
	assert.Equal(t, "Helsinki-NLP/opus-mt-en-fr", rec.ModelID)
	assert.GreaterOrEqual(t, rec.ProcessingTimeMillis, 0.0)
	assert.NotEmpty(t, rec.ID)
}

func TestTranslateDefaultsToGerman(t *testing.T) {
	fa := &fakeAudit{}
	h := newHarness(t, fa, Options{})

	result, err := h.svc.Translate(context.Background(), domain.TranslationRequest{Text: "Hello world"})
	require.NoError(t, err)
	assert.Equal(t, "Hallo Welt", result.TranslatedText)
	assert.Equal(t, "de", result.TargetLanguage)
	require.Len(t, fa.records, 1)
	assert.Equal(t, "de", fa.records[0].TargetLanguage)
}

func TestTranslateUnsupportedLanguageSkipsEverything(t *testing.T) {
	fa := &fakeAudit{}
	h := newHarness(t, fa, Options{})

	_, err := h.svc.Translate(context.Background(), domain.TranslationRequest{Text: "Hello world", TargetLanguage: "klingon"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
	assert.Zero(t, h.backend.loads)
	assert.Empty(t, fa.records)
}

func TestTranslateEmptyTextWritesNoAudit(t *testing.T) {
	fa := &fakeAudit{}
	h := newHarness(t, fa, Options{})

	result, err := h.svc.Translate(context.Background(), domain.TranslationRequest{Text: "", TargetLanguage: "de"})
	require.NoError(t, err)
	assert.Equal(t, "", result.TranslatedText)
	assert.Equal(t, "de", result.TargetLanguage)
	assert.Zero(t, result.ElapsedMillis)
	assert.Zero(t, h.backend.loads)
	assert.Empty(t, fa.records)
}

func TestTranslateFailureSkipsRecording(t *testing.T) {
	fa := &fakeAudit{}
	h := newHarness(t, fa, Options{})

	_, err := h.svc.Translate(context.Background(), domain.TranslationRequest{Text: "Good night", TargetLanguage: "fr"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInferenceFailure)
	assert.Empty(t, fa.records)
}

func TestAuditFailurePolicy(t *testing.T) {
	storeErr := errors.New("store down")

	t.Run("fail", func(t *testing.T) {
		fa := &fakeAudit{recordErr: errors.Join(domain.ErrStorageUnavailable, storeErr)}
		h := newHarness(t, fa, Options{})

		_, err := h.svc.Translate(context.Background(), domain.TranslationRequest{Text: "Hello world", TargetLanguage: "fr"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})

	t.Run("warn", func(t *testing.T) {
		fa := &fakeAudit{recordErr: errors.Join(domain.ErrStorageUnavailable, storeErr)}
		h := newHarness(t, fa, Options{AuditFailurePolicy: config.AuditFailurePolicyWarn})

		result, err := h.svc.Translate(context.Background(), domain.TranslationRequest{Text: "Hello world", TargetLanguage: "fr"})
		require.NoError(t, err)
		assert.Equal(t, "Bonjour le monde", result.TranslatedText)
	})
}

func TestHistoryLimits(t *testing.T) {
	fa := &fakeAudit{}
	h := newHarness(t, fa, Options{HistoryMaxLimit: 100})
	ctx := context.Background()

	_, err := h.svc.History(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, fa.lastLimit)

	_, err = h.svc.History(ctx, 101)
	assert.ErrorIs(t, err, ErrLimitTooLarge)

	_, err = h.svc.History(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, fa.lastLimit)

	h = newHarness(t, fa, Options{HistoryDefaultLimit: 25, HistoryMaxLimit: 100})
	_, err = h.svc.History(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 25, fa.lastLimit)
}

func TestHistoryStoreFailure(t *testing.T) {
	fa := &fakeAudit{listErr: domain.ErrStorageUnavailable}
	h := newHarness(t, fa, Options{})

	_, err := h.svc.History(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, h.svc.Ready(context.Background()), domain.ErrStorageUnavailable)
}

func TestLanguagesAreOrderStable(t *testing.T) {
	h := newHarness(t, &fakeAudit{}, Options{})

	first := h.svc.Languages()
	second := h.svc.Languages()
	assert.Equal(t, first, second)

	codes := make([]string, 0, len(first))
	for _, l := range first {
		codes = append(codes, l.Code)
	}
	assert.Equal(t, []string{"de", "fr", "es", "it", "pt", "ru", "zh"}, codes)
}
