package models

import "time"

const (
	MaxCanvasSize      = 10000
	MaxDurationSeconds = 600
)

// GameSession is one timed round owned by a single user.
type GameSession struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string     `gorm:"type:varchar(36);not null;index:idx_game_sessions_user_started,priority:1" json:"user_id"`
	GroupSnapshot   *string    `gorm:"type:varchar(50);index" json:"group_snapshot"` // owner's group when the round started
	StartedAt       time.Time  `gorm:"not null;index:idx_game_sessions_user_started,priority:2" json:"started_at"`
	FinishedAt      *time.Time `gorm:"index" json:"finished_at"`
	FinalScore      int        `gorm:"not null;default:0" json:"final_score"`
	MaxLevelReached int        `gorm:"not null;default:1" json:"max_level_reached"`
	DurationSeconds int        `gorm:"not null;default:0" json:"duration_seconds"`
	CanvasWidth     int        `gorm:"not null" json:"canvas_width"`
	CanvasHeight    int        `gorm:"not null" json:"canvas_height"`

	Shots []Shot `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	Timestamps
}

// IsActive reports whether the session can still take shots and be
// finished. A session is active until FinishedAt is set.
func (s *GameSession) IsActive() bool {
	return s.FinishedAt == nil
}

func (s *GameSession) OwnedBy(u *User) bool {
	return u != nil && s.UserID == u.ID
}
