package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"multiplication-shooter/config"
	"multiplication-shooter/database"
	"multiplication-shooter/models"
)

// newTestDB opens a private in-memory SQLite database with the schema applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	url := "sqlite://file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open(config.Database{URL: url}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role, group string) *models.User {
	t.Helper()

	externalID := "sub-" + email
	user := &models.User{
		ID:         uuid.NewString(),
		ExternalID: &externalID,
		Email:      email,
		Name:       models.StringPtr("Test"),
		Role:       role,
		Group:      models.StringPtr(group),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type fixture struct {
	db       *gorm.DB
	ledger   *ShotLedger
	sessions *SessionService
	reports  *ReportingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	ledger := NewShotLedger(db, zap.NewNop())
	return &fixture{
		db:       db,
		ledger:   ledger,
		sessions: NewSessionService(db, ledger, zap.NewNop()),
		reports:  NewReportingService(db, ledger, zap.NewNop()),
	}
}

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func (f *fixture) startSession(t *testing.T, owner *models.User, startedAt time.Time) *models.GameSession {
	t.Helper()

	s, err := f.sessions.Create(context.Background(), owner, CreateSessionInput{
		StartedAt:    startedAt,
		CanvasWidth:  1200,
		CanvasHeight: 800,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) shoot(t *testing.T, owner *models.User, sessionID string, correct bool) {
	t.Helper()

	cardValue := 12
	if !correct {
		cardValue = 15
	}
	_, err := f.ledger.Record(context.Background(), owner, sessionID, RecordShotInput{
		ShotAt:        t0.Add(time.Second),
		CoordinateX:   600,
		CoordinateY:   400,
		Factor1:       3,
		Factor2:       4,
		CorrectAnswer: 12,
		CardValue:     cardValue,
		IsCorrect:     correct,
	})
	require.NoError(t, err)
}

func (f *fixture) finish(t *testing.T, owner *models.User, sessionID string, score int) *SessionWithStats {
	t.Helper()

	out, err := f.sessions.Finish(context.Background(), owner, sessionID, FinishSessionInput{
		FinishedAt:      t0.Add(3 * time.Minute),
		FinalScore:      score,
		MaxLevelReached: 2,
		DurationSeconds: 180,
	})
	require.NoError(t, err)
	return out
}
