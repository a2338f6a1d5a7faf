package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"multiplication-shooter/database"
	"multiplication-shooter/models"
)

// RecordShotInput is one shot as reported by the client.
type RecordShotInput struct {
	ShotAt        time.Time
	CoordinateX   float64
	CoordinateY   float64
	Factor1       int
	Factor2       int
	CorrectAnswer int
	CardValue     int
	IsCorrect     bool
}

func (in RecordShotInput) validate() error {
	var c rangeCheck
	c.required("shot_at", in.ShotAt.IsZero())
	c.floatRange("coordinate_x", in.CoordinateX, 0, models.PlayfieldWidth)
	c.floatRange("coordinate_y", in.CoordinateY, 0, models.PlayfieldHeight)
	c.intRange("factor_1", in.Factor1, models.MinFactor, models.MaxFactor)
	c.intRange("factor_2", in.Factor2, models.MinFactor, models.MaxFactor)
	c.intRange("correct_answer", in.CorrectAnswer, 0, models.MaxAnswer)
	c.intRange("card_value", in.CardValue, 0, models.MaxAnswer)
	return c.err()
}

// ShotLedger is the append-only record of shots. It is also the only place
// shot statistics are counted.
type ShotLedger struct {
	DB  *gorm.DB
	log *zap.Logger
}

func NewShotLedger(db *gorm.DB, log *zap.Logger) *ShotLedger {
	return &ShotLedger{DB: db, log: log.Named("shots")}
}

// Record appends a shot to an active session owned by actor. The ownership
// and state checks run under the session row lock, in the same transaction
// as the insert, so a shot cannot land after a concurrent finish commits.
func (l *ShotLedger) Record(ctx context.Context, actor *models.User, sessionID string, in RecordShotInput) (*models.Shot, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	shot := &models.Shot{
		ID:            uuid.NewString(),
		GameSessionID: sessionID,
		ShotAt:        in.ShotAt.UTC().Truncate(time.Millisecond),
		CoordinateX:   in.CoordinateX,
		CoordinateY:   in.CoordinateY,
		Factor1:       in.Factor1,
		Factor2:       in.Factor2,
		CorrectAnswer: in.CorrectAnswer,
		CardValue:     in.CardValue,
		IsCorrect:     in.IsCorrect,
	}

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if err := admit(session, actor); err != nil {
			return err
		}
		return tx.Create(shot).Error
	})
	if err != nil {
		return nil, err
	}

	l.log.Debug("shot recorded",
		zap.String("session_id", sessionID),
		zap.String("shot_id", shot.ID),
		zap.Bool("is_correct", shot.IsCorrect))
	return shot, nil
}

// Stats counts the shots of one session right now.
func (l *ShotLedger) Stats(ctx context.Context, sessionID string) (models.ShotStats, error) {
	return shotStats(l.DB.WithContext(ctx), sessionID)
}

func shotStats(db *gorm.DB, sessionID string) (models.ShotStats, error) {
	var total, correct int64
	if err := db.Model(&models.Shot{}).Where("game_session_id = ?", sessionID).Count(&total).Error; err != nil {
		return models.ShotStats{}, fmt.Errorf("count shots: %w", err)
	}
	if err := db.Model(&models.Shot{}).Where("game_session_id = ? AND is_correct = ?", sessionID, true).Count(&correct).Error; err != nil {
		return models.ShotStats{}, fmt.Errorf("count correct shots: %w", err)
	}
	return models.NewShotStats(total, correct), nil
}

// StatsFor counts shots for many sessions in one query. Sessions without
// shots are present with zero stats.
func (l *ShotLedger) StatsFor(ctx context.Context, sessionIDs []string) (map[string]models.ShotStats, error) {
	out := make(map[string]models.ShotStats, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		GameSessionID string
		Total         int64
		Correct       int64
	}
	err := l.DB.WithContext(ctx).Model(&models.Shot{}).
		Select("game_session_id, COUNT(*) AS total, SUM(CASE WHEN is_correct THEN 1 ELSE 0 END) AS correct").
		Where("game_session_id IN ?", sessionIDs).
		Group("game_session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate shots: %w", err)
	}

	for _, id := range sessionIDs {
		out[id] = models.NewShotStats(0, 0)
	}
	for _, r := range rows {
		out[r.GameSessionID] = models.NewShotStats(r.Total, r.Correct)
	}
	return out, nil
}

// Shots lists a session's shots in firing order.
func (l *ShotLedger) Shots(ctx context.Context, sessionID string) ([]models.Shot, error) {
	var shots []models.Shot
	err := l.DB.WithContext(ctx).
		Where("game_session_id = ?", sessionID).
		Order("shot_at ASC").
		Find(&shots).Error
	return shots, err
}

// lockSession re-reads the session row inside tx. On Postgres the row is
// locked FOR UPDATE; SQLite serializes writers on its own.
func lockSession(tx *gorm.DB, sessionID string) (*models.GameSession, error) {
	q := tx
	if !database.IsSQLite(tx) {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var session models.GameSession
	if err := q.Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// admit applies the mutation guards in order: ownership, then state.
func admit(session *models.GameSession, actor *models.User) error {
	if !session.OwnedBy(actor) {
		return ErrSessionForbidden
	}
	if !session.IsActive() {
		return ErrSessionFinished
	}
	return nil
}
