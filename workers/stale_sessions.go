package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"multiplication-shooter/models"
)

// StaleSessionSource finds sessions still active that started before cutoff.
type StaleSessionSource interface {
	StaleActive(ctx context.Context, cutoff time.Time) (int64, *models.GameSession, error)
}

// StaleSessionReporter logs sessions that were started but never finished.
// It only reports: sessions stay Active until their owner finishes them.
type StaleSessionReporter struct {
	sessions StaleSessionSource
	after    time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewStaleSessionReporter(sessions StaleSessionSource, after time.Duration, log *zap.Logger) *StaleSessionReporter {
	return &StaleSessionReporter{sessions: sessions, after: after, log: log.Named("stale_sessions"), now: time.Now}
}

func (r *StaleSessionReporter) Run(ctx context.Context) error {
	cutoff := r.now().UTC().Add(-r.after)
	count, oldest, err := r.sessions.StaleActive(ctx, cutoff)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	fields := []zap.Field{
		zap.Int64("count", count),
		zap.Duration("older_than", r.after),
	}
	if oldest != nil {
		fields = append(fields,
			zap.String("oldest_session_id", oldest.ID),
			zap.Time("oldest_started_at", oldest.StartedAt))
	}
	r.log.Warn("active sessions past threshold", fields...)
	return nil
}
