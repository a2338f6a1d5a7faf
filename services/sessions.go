package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"multiplication-shooter/models"
)

const userSessionsPerPage = 10

type CreateSessionInput struct {
	StartedAt    time.Time
	CanvasWidth  int
	CanvasHeight int
}

func (in CreateSessionInput) validate() error {
	var c rangeCheck
	c.required("started_at", in.StartedAt.IsZero())
	c.intRange("canvas_width", in.CanvasWidth, 1, models.MaxCanvasSize)
	c.intRange("canvas_height", in.CanvasHeight, 1, models.MaxCanvasSize)
	return c.err()
}

type FinishSessionInput struct {
	FinishedAt      time.Time
	FinalScore      int
	MaxLevelReached int
	DurationSeconds int
}

func (in FinishSessionInput) validate() error {
	var c rangeCheck
	c.required("finished_at", in.FinishedAt.IsZero())
	c.intMin("final_score", in.FinalScore, 0)
	c.intMin("max_level_reached", in.MaxLevelReached, 1)
	c.intRange("duration_seconds", in.DurationSeconds, 0, models.MaxDurationSeconds)
	return c.err()
}

// SessionWithStats is a session plus its derived shot statistics.
type SessionWithStats struct {
	models.GameSession
	models.ShotStats
}

type SessionDetail struct {
	Session SessionWithStats `json:"session"`
	Shots   []models.Shot    `json:"shots"`
}

type SessionPage struct {
	Sessions   []SessionWithStats `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// SessionService owns the Active → Finished lifecycle of game sessions.
type SessionService struct {
	DB     *gorm.DB
	Ledger *ShotLedger
	log    *zap.Logger
}

func NewSessionService(db *gorm.DB, ledger *ShotLedger, log *zap.Logger) *SessionService {
	return &SessionService{DB: db, Ledger: ledger, log: log.Named("sessions")}
}

// Create starts a new active session for actor, snapshotting the actor's group.
func (s *SessionService) Create(ctx context.Context, actor *models.User, in CreateSessionInput) (*models.GameSession, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	session := &models.GameSession{
		ID:              uuid.NewString(),
		UserID:          actor.ID,
		GroupSnapshot:   actor.Group,
		StartedAt:       in.StartedAt.UTC(),
		FinalScore:      0,
		MaxLevelReached: 1,
		DurationSeconds: 0,
		CanvasWidth:     in.CanvasWidth,
		CanvasHeight:    in.CanvasHeight,
	}
	if err := s.DB.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("session started", zap.String("session_id", session.ID), zap.String("user_id", actor.ID))
	return session, nil
}

// Finish closes an active session. Checks run in order (exists, owner,
// active) under the row lock, and the update itself is guarded on
// finished_at IS NULL, so of two racing calls exactly one wins and the other
// gets ErrSessionFinished. The returned stats are counted after the update.
func (s *SessionService) Finish(ctx context.Context, actor *models.User, sessionID string, in FinishSessionInput) (*SessionWithStats, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var out SessionWithStats
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if err := admit(session, actor); err != nil {
			return err
		}

		finishedAt := in.FinishedAt.UTC()
		res := tx.Model(&models.GameSession{}).
			Where("id = ? AND finished_at IS NULL", session.ID).
			Updates(map[string]interface{}{
				"finished_at":       finishedAt,
				"final_score":       in.FinalScore,
				"max_level_reached": in.MaxLevelReached,
				"duration_seconds":  in.DurationSeconds,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrSessionFinished
		}

		if err := tx.First(session, "id = ?", session.ID).Error; err != nil {
			return err
		}
		stats, err := shotStats(tx, session.ID)
		if err != nil {
			return err
		}
		out = SessionWithStats{GameSession: *session, ShotStats: stats}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session finished",
		zap.String("session_id", out.ID),
		zap.Int("final_score", out.FinalScore),
		zap.Int64("total_shots", out.TotalShots),
		zap.Float64("accuracy", out.Accuracy))
	return &out, nil
}

// List returns the actor's sessions, newest first.
func (s *SessionService) List(ctx context.Context, actor *models.User, page int) (*SessionPage, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	p := NewPageRequest(page, 0, userSessionsPerPage)
	q := s.DB.WithContext(ctx).Model(&models.GameSession{}).Where("user_id = ?", actor.ID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	var sessions []models.GameSession
	if err := q.Order("started_at DESC").Limit(p.PerPage).Offset(p.Offset()).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	withStats, err := s.attachStats(ctx, sessions)
	if err != nil {
		return nil, err
	}
	return &SessionPage{Sessions: withStats, Pagination: p.Result(total, len(withStats))}, nil
}

// Detail returns one of the actor's sessions with its shots. A session owned
// by someone else is reported as not found so ids cannot be probed.
func (s *SessionService) Detail(ctx context.Context, actor *models.User, sessionID string) (*SessionDetail, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	var session models.GameSession
	if err := s.DB.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if !session.OwnedBy(actor) {
		return nil, ErrSessionNotFound
	}

	shots, err := s.Ledger.Shots(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load shots: %w", err)
	}
	// Stats are counted the same way as on every other path rather than
	// derived from the loaded slice.
	stats, err := s.Ledger.Stats(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{
		Session: SessionWithStats{GameSession: session, ShotStats: stats},
		Shots:   shots,
	}, nil
}

// StaleActive reports sessions still active that started before cutoff.
// It only reads; nothing finishes a session except Finish.
func (s *SessionService) StaleActive(ctx context.Context, cutoff time.Time) (int64, *models.GameSession, error) {
	q := s.DB.WithContext(ctx).Model(&models.GameSession{}).
		Where("finished_at IS NULL AND started_at < ?", cutoff)

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, fmt.Errorf("count stale sessions: %w", err)
	}
	if count == 0 {
		return 0, nil, nil
	}

	var oldest models.GameSession
	if err := q.Order("started_at ASC").First(&oldest).Error; err != nil {
		return count, nil, fmt.Errorf("oldest stale session: %w", err)
	}
	return count, &oldest, nil
}

func (s *SessionService) attachStats(ctx context.Context, sessions []models.GameSession) ([]SessionWithStats, error) {
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	stats, err := s.Ledger.StatsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]SessionWithStats, len(sessions))
	for i, sess := range sessions {
		out[i] = SessionWithStats{GameSession: sess, ShotStats: stats[sess.ID]}
	}
	return out, nil
}
