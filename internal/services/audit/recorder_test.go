package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/ClareAI/astra-translation-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepo struct {
	err       error
	lastLimit int
}

func (f *failingRepo) Insert(context.Context, *domain.AuditRecord) (string, error) {
	return "", f.err
}

func (f *failingRepo) ListRecent(_ context.Context, limit int) ([]*domain.AuditRecord, error) {
	f.lastLimit = limit
	return nil, f.err
}

func (f *failingRepo) Ping(context.Context) error  { return f.err }
func (f *failingRepo) Close(context.Context) error { return nil }

func newSQLiteRecorder(t *testing.T) *Recorder {
	t.Helper()
	repo, err := repository.NewGormTranslationLogRepositoryFromConfig(&repository.DatabaseConfig{
		Driver:     repository.StoreSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "audit.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return NewRecorder(repo)
}

type steppingClock struct {
	next time.Time
}

func (c *steppingClock) now() time.Time {
	t := c.next
	c.next = c.next.Add(time.Second)
	return t
}

func TestRecordThenListRecentReturnsIt(t *testing.T) {
	rec := newSQLiteRecorder(t)
	ctx := context.Background()

	id, err := rec.Record(ctx, "Hello world", "Bonjour le monde", Metadata{
		ModelID:              "Helsinki-NLP/opus-mt-en-fr",
		TargetLanguage:       "fr",
		InputLength:          11,
		ProcessingTimeMillis: 42,
	})
	require.NoError(t, err)

	records, err := rec.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, "Bonjour le monde", records[0].OutputText)
	assert.Equal(t, "fr", records[0].TargetLanguage)
	assert.Equal(t, time.UTC, records[0].Timestamp.Location())
}

func TestListRecentOrdersByTimestampDescending(t *testing.T) {
	clock := &steppingClock{next: time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))}
	rec := newSQLiteRecorder(t).WithClock(clock.now)
	ctx := context.Background()

	for _, text := range []string{"t1", "t2", "t3"} {
		_, err := rec.Record(ctx, text, text, Metadata{TargetLanguage: "de"})
		require.NoError(t, err)
	}

	records, err := rec.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "t3", records[0].InputText)
	assert.Equal(t, "t2", records[1].InputText)
	assert.True(t, records[0].Timestamp.Equal(time.Date(2023, 12, 31, 23, 0, 2, 0, time.UTC)))
}

func TestListRecentDefaultsLimit(t *testing.T) {
	repo := &failingRepo{}
	rec := NewRecorder(repo)

	_, err := rec.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, repo.lastLimit)

	_, err = rec.ListRecent(context.Background(), -5)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, repo.lastLimit)

	_, err = rec.ListRecent(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.lastLimit)
}

func TestStoreFailuresBecomeStorageUnavailable(t *testing.T) {
	rec := NewRecorder(&failingRepo{err: errors.New("connection refused")})
	ctx := context.Background()

	_, err := rec.Record(ctx, "a", "b", Metadata{})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = rec.ListRecent(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	err = rec.Ping(ctx)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}
