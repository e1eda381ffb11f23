package domain

import "time"

// TimeSlot is a derived calendar view of an interval. It is never persisted.
type TimeSlot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Available       bool      `json:"available"`
	DurationMinutes int       `json:"duration_minutes"`
}
