package models

import "time"

// Transition is an archived history entry without its window snapshot.
type Transition struct {
	Timestamp  time.Time   `json:"timestamp"`
	Type       PatternType `json:"type"`
	Confidence float64     `json:"confidence"`
	Trend      float64     `json:"trend"`
	Volatility float64     `json:"volatility"`
	Velocity   float64     `json:"velocity"`
}

// TransitionFromEntry flattens a history entry for archiving.
func TransitionFromEntry(e HistoryEntry) Transition {
	return Transition{
		Timestamp:  e.Timestamp,
		Type:       e.Pattern.Type,
		Confidence: e.Pattern.Confidence,
		Trend:      e.Pattern.Metrics.Trend,
		Volatility: e.Pattern.Metrics.Volatility,
		Velocity:   e.Pattern.Metrics.Velocity,
	}
}
