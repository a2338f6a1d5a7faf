package workers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"multiplication-shooter/models"
	"multiplication-shooter/services"
)

type stubStaleSource struct {
	cutoff time.Time
	count  int64
	oldest *models.GameSession
	err    error
}

func (s *stubStaleSource) StaleActive(_ context.Context, cutoff time.Time) (int64, *models.GameSession, error) {
	s.cutoff = cutoff
	return s.count, s.oldest, s.err
}

func TestStaleSessionReporterWarnsOnlyWhenSessionsAreStale(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	core, logs := observer.New(zapcore.DebugLevel)

	src := &stubStaleSource{}
	r := NewStaleSessionReporter(src, 30*time.Minute, zap.New(core))
	r.now = func() time.Time { return now }

	require.NoError(t, r.Run(context.Background()))
	assert.True(t, src.cutoff.Equal(now.Add(-30*time.Minute)))
	assert.Zero(t, logs.Len())

	src.count = 2
	src.oldest = &models.GameSession{ID: "s-1", StartedAt: now.Add(-2 * time.Hour)}
	require.NoError(t, r.Run(context.Background()))

	entries := logs.FilterMessage("active sessions past threshold").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, int64(2), entries[0].ContextMap()["count"])
	assert.Equal(t, "s-1", entries[0].ContextMap()["oldest_session_id"])

	src.err = errors.New("db down")
	assert.Error(t, r.Run(context.Background()))
}

type stubExporter struct {
	err error
}

func (e *stubExporter) ExportUsers(_ context.Context, w io.Writer, _ services.UserFilter) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	_, err := fmt.Fprint(w, "Email\na@example.com\n")
	return 1, err
}

type stubStore struct {
	key         string
	body        string
	contentType string
}

func (s *stubStore) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	s.key, s.body, s.contentType = key, string(body), contentType
	return "https://cdn.example.com/" + key, nil
}

func TestExportArchiverUploadsUsersCSV(t *testing.T) {
	store := &stubStore{}
	a := NewExportArchiver(&stubExporter{}, store, zap.NewNop())
	a.now = func() time.Time { return time.Date(2026, 3, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "exports/usuarios_2026-03-02_03-04-05.csv", store.key)
	assert.Equal(t, "Email\na@example.com\n", store.body)
	assert.Contains(t, store.contentType, "text/csv")
}

func TestExportArchiverStopsOnRenderFailure(t *testing.T) {
	store := &stubStore{}
	a := NewExportArchiver(&stubExporter{err: errors.New("boom")}, store, zap.NewNop())

	assert.Error(t, a.Run(context.Background()))
	assert.Empty(t, store.key)
}

func TestSchedulerRunsJobs(t *testing.T) {
	s, err := NewScheduler(zap.NewNop())
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Every(context.Background(), "tick", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}))
	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
