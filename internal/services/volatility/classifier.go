package volatility

import (
	"math"

	"VolPulse/internal/domain/models"
	domsvc "VolPulse/internal/domain/service"
)

const (
	// MinObservations is the smallest window the classifier will look at.
	MinObservations = 10
	segmentSize     = 5
)

// Stats are the figures every rule is evaluated against.
type Stats struct {
	RecentAvg          float64
	PreviousAvg        float64
	Trend              float64
	RecentVolatility   float64
	PreviousVolatility float64
	VolatilityChange   float64
	Range              float64
}

// ComputeStats splits the last ten values into previous and recent halves.
// ok is false when fewer than MinObservations values are given.
func ComputeStats(window []float64) (Stats, bool) {
	if len(window) < MinObservations {
		return Stats{}, false
	}
	n := len(window)
	recent := window[n-segmentSize:]
	previous := window[n-2*segmentSize : n-segmentSize]

	s := Stats{
		RecentAvg:          Mean(recent),
		PreviousAvg:        Mean(previous),
		RecentVolatility:   StdDev(recent),
		PreviousVolatility: StdDev(previous),
		Range:              Range(recent),
	}
	s.Trend = s.RecentAvg - s.PreviousAvg
	s.VolatilityChange = s.RecentVolatility - s.PreviousVolatility
	return s, true
}

type rule struct {
	pattern     models.PatternType
	description string
	indicator   string
	match       func(Stats) bool
	confidence  func(Stats) float64
}

// rules are evaluated in order and the first match wins.
// Several conditions overlap, so the order is load-bearing.
var rules = []rule{
	{
		pattern:     models.PatternBreakout,
		description: "Strong upward move with expanding volatility",
		indicator:   "⇈",
		match:       func(s Stats) bool { return s.Trend > 3 && s.RecentVolatility > 2 },
		confidence:  func(s Stats) float64 { return math.Min(95, 75+math.Abs(s.Trend)*4) },
	},
	{
		pattern:     models.PatternBreakdown,
		description: "Strong downward move with expanding volatility",
		indicator:   "⇊",
		match:       func(s Stats) bool { return s.Trend < -3 && s.RecentVolatility > 2 },
		confidence:  func(s Stats) float64 { return math.Min(95, 75+math.Abs(s.Trend)*4) },
	},
	{
		pattern:     models.PatternReversal,
		description: "Sharp rebound after a decline",
		indicator:   "↻",
		match: func(s Stats) bool {
			return s.PreviousAvg < 96 && s.RecentAvg > 99 && s.Trend > 2
		},
		confidence: func(s Stats) float64 { return math.Min(90, 70+math.Abs(s.Trend)*3) },
	},
	{
		pattern:     models.PatternSurge,
		description: "Steady climb with low volatility",
		indicator:   "↑",
		match:       func(s Stats) bool { return s.Trend > 2 && s.RecentVolatility < 2 },
		confidence:  func(s Stats) float64 { return math.Min(95, 70+math.Abs(s.Trend)*5) },
	},
	{
		pattern:     models.PatternCrash,
		description: "Steady slide with low volatility",
		indicator:   "↓",
		match:       func(s Stats) bool { return s.Trend < -2 && s.RecentVolatility < 2 },
		confidence:  func(s Stats) float64 { return math.Min(95, 70+math.Abs(s.Trend)*5) },
	},
	{
		pattern:     models.PatternOscillation,
		description: "Choppy swings with rising volatility",
		indicator:   "↕",
		match:       func(s Stats) bool { return s.RecentVolatility > 3 && s.VolatilityChange > 1 },
		confidence:  func(s Stats) float64 { return math.Min(90, 60+s.RecentVolatility*8) },
	},
	{
		pattern:     models.PatternRecovery,
		description: "Gradual recovery from depressed levels",
		indicator:   "↗",
		match: func(s Stats) bool {
			return s.PreviousAvg < 95 && s.RecentAvg > 98 && s.Trend > 0
		},
		confidence: func(s Stats) float64 { return math.Min(85, 65+math.Abs(s.Trend)*4) },
	},
	{
		pattern:     models.PatternConsolidation,
		description: "Tight range with compressed volatility",
		indicator:   "↔",
		match:       func(s Stats) bool { return s.Range < 1.5 && s.RecentVolatility < 1 },
		confidence:  func(Stats) float64 { return 80 },
	},
	{
		pattern:     models.PatternSteady,
		description: "Flat market with little movement",
		indicator:   "→",
		match:       func(s Stats) bool { return s.RecentVolatility < 1 && math.Abs(s.Trend) < 0.5 },
		confidence:  func(Stats) float64 { return 75 },
	},
}

// Classifier implements domain PatternClassifier with the ordered rule set.
type Classifier struct{}

// NewClassifier returns the rule-based classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Classify returns the first matching pattern for window. It is pure: the same
// input always yields the same output, and the input is not modified.
func (Classifier) Classify(window []float64) (models.ClassifiedPattern, bool) {
	s, ok := ComputeStats(window)
	if !ok {
		return models.ClassifiedPattern{}, false
	}
	for _, r := range rules {
		if !r.match(s) {
			continue
		}
		return models.ClassifiedPattern{
			Type:        r.pattern,
			Confidence:  r.confidence(s),
			Description: r.description,
			Indicator:   r.indicator,
			Metrics: models.PatternMetrics{
				Trend:      s.Trend,
				Volatility: s.RecentVolatility,
				Velocity:   s.Trend,
			},
		}, true
	}
	return models.ClassifiedPattern{}, false
}

var _ domsvc.PatternClassifier = Classifier{}
