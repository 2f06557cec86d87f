package models

import "time"

// PatternType is a classified market regime label.
type PatternType string

const (
	PatternBreakout      PatternType = "breakout"
	PatternBreakdown     PatternType = "breakdown"
	PatternReversal      PatternType = "reversal"
	PatternSurge         PatternType = "surge"
	PatternCrash         PatternType = "crash"
	PatternOscillation   PatternType = "oscillation"
	PatternRecovery      PatternType = "recovery"
	PatternConsolidation PatternType = "consolidation"
	PatternSteady        PatternType = "steady"
)

// PatternTypes lists every pattern in classification priority order.
var PatternTypes = []PatternType{
	PatternBreakout,
	PatternBreakdown,
	PatternReversal,
	PatternSurge,
	PatternCrash,
	PatternOscillation,
	PatternRecovery,
	PatternConsolidation,
	PatternSteady,
}

// Observation is one aggregate value ingested per tick.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// PatternMetrics are the window statistics a pattern was derived from.
type PatternMetrics struct {
	Trend      float64 `json:"trend"`
	Volatility float64 `json:"volatility"`
	Velocity   float64 `json:"velocity"`
}

// ClassifiedPattern is a value object; copy it, don't share it.
type ClassifiedPattern struct {
	Type        PatternType    `json:"type"`
	Confidence  float64        `json:"confidence"`
	Description string         `json:"description"`
	Indicator   string         `json:"indicator"`
	Metrics     PatternMetrics `json:"metrics"`
}

// HistoryEntry records a transition into a new pattern type.
type HistoryEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Pattern   ClassifiedPattern `json:"pattern"`
	Window    []float64         `json:"window"`
}

// Clone returns a deep copy so readers never share the window slice.
func (e HistoryEntry) Clone() HistoryEntry {
	w := make([]float64, len(e.Window))
	copy(w, e.Window)
	e.Window = w
	return e
}
