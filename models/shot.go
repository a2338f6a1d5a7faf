package models

import "time"

// Fixed playfield bounds for shot coordinates. They do not follow the
// session's recorded canvas size.
const (
	PlayfieldWidth  = 1200
	PlayfieldHeight = 800

	MinFactor = 1
	MaxFactor = 12
	MaxAnswer = MaxFactor * MaxFactor
)

// Shot is one scoring event. IsCorrect is stored as the client reported it.
type Shot struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	GameSessionID string    `gorm:"type:varchar(36);not null;index" json:"game_session_id"`
	ShotAt        time.Time `gorm:"precision:3;not null" json:"shot_at"`
	CoordinateX   float64   `gorm:"type:decimal(8,2);not null" json:"coordinate_x"`
	CoordinateY   float64   `gorm:"type:decimal(8,2);not null" json:"coordinate_y"`
	Factor1       int       `gorm:"column:factor_1;not null;index:idx_shots_factors,priority:1" json:"factor_1"`
	Factor2       int       `gorm:"column:factor_2;not null;index:idx_shots_factors,priority:2" json:"factor_2"`
	CorrectAnswer int       `gorm:"not null" json:"correct_answer"`
	CardValue     int       `gorm:"not null" json:"card_value"`
	IsCorrect     bool      `gorm:"not null;index" json:"is_correct"`

	Timestamps
}
