package domain

import "github.com/google/uuid"

// MatchCandidate is the read-only projection of a mentor profile used for scoring.
type MatchCandidate struct {
	ID                  uuid.UUID `json:"id"`
	DisplayName         string    `json:"display_name,omitempty"`
	ExpertiseTags       []string  `json:"expertise_tags"`
	Industry            string    `json:"industry"`
	Stage               string    `json:"stage"`
	HasOpenAvailability bool      `json:"has_open_availability"`
	Rating              float64   `json:"rating"`
}
