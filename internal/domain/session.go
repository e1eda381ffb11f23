package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a booked session.
type SessionStatus string

// Possible session status values
const (
	SessionStatusScheduled   SessionStatus = "scheduled"
	SessionStatusCompleted   SessionStatus = "completed"
	SessionStatusCancelled   SessionStatus = "cancelled"
	SessionStatusRescheduled SessionStatus = "rescheduled"
)

// MeetingType describes how a session takes place.
type MeetingType string

// Supported meeting types
const (
	MeetingTypeVideo    MeetingType = "video"
	MeetingTypePhone    MeetingType = "phone"
	MeetingTypeInPerson MeetingType = "in_person"
)

// Session validation errors
var (
	ErrEmptySessionID       = errors.New("session ID cannot be empty")
	ErrEmptySessionMentorID = errors.New("session mentor ID cannot be empty")
	ErrEmptySessionMenteeID = errors.New("session mentee ID cannot be empty")
	ErrInvalidMeetingType   = fmt.Errorf("%w: invalid meeting type", ErrValidation)
)

// BookedSession is a confirmed appointment between a mentor and a mentee.
// Its time range never changes after creation; a reschedule creates a new
// session and moves the old one to SessionStatusRescheduled.
type BookedSession struct {
	ID              uuid.UUID     `json:"id"`
	MentorID        uuid.UUID     `json:"mentor_id"`
	MenteeID        uuid.UUID     `json:"mentee_id"`
	Start           time.Time     `json:"start"`
	End             time.Time     `json:"end"`
	Status          SessionStatus `json:"status"`
	MeetingType     MeetingType   `json:"meeting_type"`
	Goals           string        `json:"goals,omitempty"`
	RescheduledFrom *uuid.UUID    `json:"rescheduled_from,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewBookedSession creates a scheduled session with a fresh ID.
// Returns an error if validation fails.
func NewBookedSession(
	mentorID, menteeID uuid.UUID,
	start, end time.Time,
	meetingType MeetingType,
	goals string,
) (*BookedSession, error) {
	now := time.Now().UTC()
	session := &BookedSession{
		ID:          uuid.New(),
		MentorID:    mentorID,
		MenteeID:    menteeID,
		Start:       start.UTC(),
		End:         end.UTC(),
		Status:      SessionStatusScheduled,
		MeetingType: meetingType,
		Goals:       goals,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the session has valid data.
func (s *BookedSession) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySessionID
	}
	if s.MentorID == uuid.Nil {
		return ErrEmptySessionMentorID
	}
	if s.MenteeID == uuid.Nil {
		return ErrEmptySessionMenteeID
	}
	if err := s.Interval().Validate(); err != nil {
		return err
	}
	if !IsValidSessionStatus(s.Status) {
		return ErrInvalidSessionStatus
	}
	if !IsValidMeetingType(s.MeetingType) {
		return ErrInvalidMeetingType
	}
	return nil
}

// Interval returns the session's time range.
func (s *BookedSession) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// IsScheduled reports whether the session still occupies its time range.
func (s *BookedSession) IsScheduled() bool {
	return s.Status == SessionStatusScheduled
}

// TransitionTo moves the session to a terminal status.
// Only scheduled sessions may change status.
func (s *BookedSession) TransitionTo(status SessionStatus) error {
	if !IsValidSessionStatus(status) {
		return ErrInvalidSessionStatus
	}
	if s.Status != SessionStatusScheduled || status == SessionStatusScheduled {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s.Status, status)
	}

	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// IsValidSessionStatus checks if the given status is a known SessionStatus.
func IsValidSessionStatus(status SessionStatus) bool {
	switch status {
	case SessionStatusScheduled, SessionStatusCompleted,
		SessionStatusCancelled, SessionStatusRescheduled:
		return true
	default:
		return false
	}
}

// IsValidMeetingType checks if the given meeting type is supported.
func IsValidMeetingType(t MeetingType) bool {
	switch t {
	case MeetingTypeVideo, MeetingTypePhone, MeetingTypeInPerson:
		return true
	default:
		return false
	}
}
