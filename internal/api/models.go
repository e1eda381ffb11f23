package api

import (
	"time"

	"github.com/phrazzld/mentorbook-api/internal/domain"
	scoring "github.com/phrazzld/mentorbook-api/internal/domain/matching"
	"github.com/phrazzld/mentorbook-api/internal/service/matching"
)

// CreateAvailabilityRequest is the body of POST /api/mentors/{mentorID}/availability.
type CreateAvailabilityRequest struct {
	Start    time.Time `json:"start"    validate:"required"`
	End      time.Time `json:"end"      validate:"required,gtfield=Start"`
	Location string    `json:"location" validate:"max=200"`
}

// CreateSessionRequest is the body of POST /api/mentors/{mentorID}/sessions.
// The mentee is the authenticated caller.
type CreateSessionRequest struct {
	Start       time.Time `json:"start"        validate:"required"`
	End         time.Time `json:"end"          validate:"required"`
	MeetingType string    `json:"meeting_type" validate:"required,oneof=video phone in_person"`
	Goals       string    `json:"goals"        validate:"max=2000"`
}

// UpdateSessionStatusRequest is the body of PATCH /api/sessions/{sessionID}/status.
type UpdateSessionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=completed cancelled"`
}

// RescheduleSessionRequest is the body of POST /api/sessions/{sessionID}/reschedule.
type RescheduleSessionRequest struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end"   validate:"required"`
}

// MatchFilters narrows a match query.
type MatchFilters struct {
	Expertise []string `json:"expertise" validate:"max=20,dive,max=100"`
	Industry  string   `json:"industry"  validate:"max=100"`
	Stage     string   `json:"stage"     validate:"max=100"`
}

// MatchRequest is the body of POST /api/matches.
type MatchRequest struct {
	QueryText string       `json:"query_text" validate:"max=500"`
	Filters   MatchFilters `json:"filters"`
}

// MatchResponse is one ranked candidate.
type MatchResponse struct {
	CandidateID string        `json:"candidate_id"`
	DisplayName string        `json:"display_name,omitempty"`
	Score       float64       `json:"score"`
	Breakdown   scoring.Score `json:"breakdown"`
	Explanation []string      `json:"explanation"`
}

// MatchListResponse wraps the ranked candidates.
type MatchListResponse struct {
	Matches []MatchResponse `json:"matches"`
}

// SessionResponse represents a booked session.
type SessionResponse struct {
	ID              string    `json:"id"`
	MentorID        string    `json:"mentor_id"`
	MenteeID        string    `json:"mentee_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Status          string    `json:"status"`
	MeetingType     string    `json:"meeting_type"`
	Goals           string    `json:"goals,omitempty"`
	RescheduledFrom string    `json:"rescheduled_from,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AvailabilityBlockResponse represents an offered block.
type AvailabilityBlockResponse struct {
	ID        string    `json:"id"`
	MentorID  string    `json:"mentor_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AvailabilityResponse is a mentor's calendar view.
type AvailabilityResponse struct {
	MentorID       string            `json:"mentor_id"`
	RangeStart     time.Time         `json:"range_start"`
	RangeEnd       time.Time         `json:"range_end"`
	Timezone       string            `json:"timezone"`
	AvailableSlots []domain.TimeSlot `json:"available_slots"`
	BookedSlots    []domain.TimeSlot `json:"booked_slots"`
}

// OutboxTaskResponse represents an outbox task for operators.
type OutboxTaskResponse struct {
	ID           string    `json:"id"`
	EntityType   string    `json:"entity_type"`
	EntityID     string    `json:"entity_id"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	Attempts     int       `json:"attempts"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OutboxTaskListResponse wraps a list of outbox tasks.
type OutboxTaskListResponse struct {
	Tasks []OutboxTaskResponse `json:"tasks"`
}

func sessionToResponse(s *domain.BookedSession) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID.String(),
		MentorID:    s.MentorID.String(),
		MenteeID:    s.MenteeID.String(),
		Start:       s.Start,
		End:         s.End,
		Status:      string(s.Status),
		MeetingType: string(s.MeetingType),
		Goals:       s.Goals,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.RescheduledFrom != nil {
		resp.RescheduledFrom = s.RescheduledFrom.String()
	}
	return resp
}

func blockToResponse(b *domain.AvailabilityBlock) AvailabilityBlockResponse {
	return AvailabilityBlockResponse{
		ID:        b.ID.String(),
		MentorID:  b.MentorID.String(),
		Start:     b.Start,
		End:       b.End,
		Location:  b.Location,
		CreatedAt: b.CreatedAt,
	}
}

func outboxTaskToResponse(t *domain.OutboxTask) OutboxTaskResponse {
	return OutboxTaskResponse{
		ID:           t.ID.String(),
		EntityType:   t.EntityType,
		EntityID:     t.EntityID,
		Action:       string(t.Action),
		Status:       string(t.Status),
		Attempts:     t.Attempts,
		ErrorMessage: t.ErrorMessage,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func matchesToResponse(matches []matching.Match) MatchListResponse {
	resp := MatchListResponse{Matches: make([]MatchResponse, 0, len(matches))}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, MatchResponse{
			CandidateID: m.CandidateID.String(),
			DisplayName: m.DisplayName,
			Score:       m.Score,
			Breakdown:   m.Breakdown,
			Explanation: m.Explanation,
		})
	}
	return resp
}

func (r MatchRequest) toQuery() scoring.Query {
	return scoring.Query{
		Text:      r.QueryText,
		Expertise: r.Filters.Expertise,
		Industry:  r.Filters.Industry,
		Stage:     r.Filters.Stage,
	}
}
