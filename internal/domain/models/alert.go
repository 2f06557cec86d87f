package models

import "time"

// AlertPayload is handed to the alert-rule/notification collaborator.
type AlertPayload struct {
	Type        PatternType    `json:"type"`
	Confidence  float64        `json:"confidence"`
	Description string         `json:"description"`
	Metrics     PatternMetrics `json:"metrics"`
	DetectedAt  time.Time      `json:"detected_at"`
}

// NewAlertPayload builds the outbound alert for a classified pattern.
func NewAlertPayload(p ClassifiedPattern, at time.Time) AlertPayload {
	return AlertPayload{
		Type:        p.Type,
		Confidence:  p.Confidence,
		Description: p.Description,
		Metrics:     p.Metrics,
		DetectedAt:  at,
	}
}

// PatternSnapshot is the display view mirrored to caches and served over HTTP.
type PatternSnapshot struct {
	Current   *ClassifiedPattern `json:"current"`
	History   []HistoryEntry     `json:"history"`
	UpdatedAt time.Time          `json:"updated_at"`
}
