package service

import "VolPulse/internal/domain/models"

// PatternClassifier maps a window of observations to a pattern, if any.
type PatternClassifier interface {
	Classify(window []float64) (models.ClassifiedPattern, bool)
}

// PatternReader is the read-only view used by presentation layers.
type PatternReader interface {
	Current() (models.ClassifiedPattern, bool)
	History() []models.HistoryEntry
}
