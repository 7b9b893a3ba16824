package domain

import "math"

// Score bounds.
const (
	MinScore = 0
	MaxScore = 1000
)

// Client is a bank client as held by the identity store.
type Client struct {
	ID        string  `json:"id" yaml:"id" mapstructure:"id"`                         // Normalized 11-digit CPF
	Name      string  `json:"name" yaml:"name" mapstructure:"name"`                   // Display name
	BirthDate string  `json:"birth_date" yaml:"birth_date" mapstructure:"birth_date"` // Canonical YYYY-MM-DD
	Score     float64 `json:"score" yaml:"score" mapstructure:"score"`
	Limit     float64 `json:"limit" yaml:"limit" mapstructure:"limit"`
}

// ClampScore bounds a score to [MinScore, MaxScore] and rounds it to cents precision.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return MinScore
	}
	return Round2(math.Max(MinScore, math.Min(MaxScore, score)))
}

// Round2 rounds a value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
