package models

import "math"

// ShotStats is the derived shot summary of one session. Every read path
// (finish response, session list, detail, admin views, CSV export) builds it
// through NewShotStats.
type ShotStats struct {
	TotalShots   int64   `json:"total_shots"`
	CorrectShots int64   `json:"correct_shots"`
	WrongShots   int64   `json:"wrong_shots"`
	Accuracy     float64 `json:"accuracy"`
}

func NewShotStats(total, correct int64) ShotStats {
	return ShotStats{
		TotalShots:   total,
		CorrectShots: correct,
		WrongShots:   total - correct,
		Accuracy:     Accuracy(total, correct),
	}
}

// Accuracy is correct/total as a percentage rounded to 2 decimals, 0 when
// there are no shots.
func Accuracy(total, correct int64) float64 {
	if total <= 0 {
		return 0
	}
	return RoundTo(float64(correct)*100/float64(total), 2)
}

// RoundTo rounds half away from zero to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
