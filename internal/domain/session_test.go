package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewBookedSession(t *testing.T) {
	t.Parallel()
	mentorID := uuid.New()
	menteeID := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	end := start.Add(30 * time.Minute)

	session, err := NewBookedSession(mentorID, menteeID, start, end, MeetingTypeVideo, "pitch deck review")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if session.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if session.Status != SessionStatusScheduled {
		t.Errorf("Expected status %s, got %s", SessionStatusScheduled, session.Status)
	}
	if session.Start.Location() != time.UTC {
		t.Errorf("Expected start normalized to UTC, got %v", session.Start.Location())
	}
	if !session.Start.Equal(start) {
		t.Errorf("Expected start %v, got %v", start, session.Start)
	}

	tests := []struct {
		name        string
		mentorID    uuid.UUID
		menteeID    uuid.UUID
		start       time.Time
		end         time.Time
		meetingType MeetingType
		wantErr     error
	}{
		{"missing mentor", uuid.Nil, menteeID, start, end, MeetingTypeVideo, ErrEmptySessionMentorID},
		{"missing mentee", mentorID, uuid.Nil, start, end, MeetingTypeVideo, ErrEmptySessionMenteeID},
		{"end before start", mentorID, menteeID, end, start, MeetingTypeVideo, ErrInvalidTimeRange},
		{"zero length", mentorID, menteeID, start, start, MeetingTypeVideo, ErrInvalidTimeRange},
		{"unknown meeting type", mentorID, menteeID, start, end, MeetingType("carrier pigeon"), ErrInvalidMeetingType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBookedSession(tt.mentorID, tt.menteeID, tt.start, tt.end, tt.meetingType, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBookedSessionTransitionTo(t *testing.T) {
	t.Parallel()

	newSession := func(t *testing.T) *BookedSession {
		t.Helper()
		start := time.Now().Add(time.Hour)
		s, err := NewBookedSession(uuid.New(), uuid.New(), start, start.Add(time.Hour), MeetingTypePhone, "")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		return s
	}

	for _, status := range []SessionStatus{SessionStatusCompleted, SessionStatusCancelled, SessionStatusRescheduled} {
		t.Run("scheduled to "+string(status), func(t *testing.T) {
			s := newSession(t)
			if err := s.TransitionTo(status); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if s.Status != status {
				t.Errorf("Expected status %s, got %s", status, s.Status)
			}
			if s.IsScheduled() {
				t.Error("Expected session to no longer be scheduled")
			}

			// Terminal statuses never move again.
			if err := s.TransitionTo(SessionStatusCancelled); !errors.Is(err, ErrInvalidStatusTransition) {
				t.Errorf("Expected ErrInvalidStatusTransition, got %v", err)
			}
		})
	}

	t.Run("scheduled to scheduled", func(t *testing.T) {
		s := newSession(t)
		if err := s.TransitionTo(SessionStatusScheduled); !errors.Is(err, ErrInvalidStatusTransition) {
			t.Errorf("Expected ErrInvalidStatusTransition, got %v", err)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		s := newSession(t)
		err := s.TransitionTo(SessionStatus("archived"))
		if !errors.Is(err, ErrInvalidSessionStatus) || !errors.Is(err, ErrValidation) {
			t.Errorf("Expected ErrInvalidSessionStatus wrapping ErrValidation, got %v", err)
		}
	})
}
