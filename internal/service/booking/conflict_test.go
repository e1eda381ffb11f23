package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/mocks"
)

func seedDetector(t *testing.T) (*ConflictDetector, uuid.UUID, *domain.BookedSession) {
	t.Helper()

	mentorID := uuid.New()
	blocks := mocks.NewMockAvailabilityStore()
	sessions := mocks.NewMockSessionStore()

	block, err := domain.NewAvailabilityBlock(mentorID, at(9, 0), at(10, 0), "")
	if err != nil {
		t.Fatalf("NewAvailabilityBlock: %v", err)
	}
	if err := blocks.Create(context.Background(), block); err != nil {
		t.Fatalf("Create block: %v", err)
	}

	session, err := domain.NewBookedSession(mentorID, uuid.New(), at(12, 0), at(13, 0), domain.MeetingTypeVideo, "")
	if err != nil {
		t.Fatalf("NewBookedSession: %v", err)
	}
	if err := sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("Create session: %v", err)
	}

	cancelled, _ := domain.NewBookedSession(mentorID, uuid.New(), at(15, 0), at(16, 0), domain.MeetingTypeVideo, "")
	cancelled.Status = domain.SessionStatusCancelled
	if err := sessions.Create(context.Background(), cancelled); err != nil {
		t.Fatalf("Create cancelled session: %v", err)
	}

	return NewConflictDetector(blocks, sessions), mentorID, session
}

func TestConflictDetector_HasConflict(t *testing.T) {
	t.Parallel()
	detector, mentorID, _ := seedDetector(t)

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"overlaps block end", at(9, 30), at(10, 30), true},
		{"exact block", at(9, 0), at(10, 0), true},
		{"touches block end", at(10, 0), at(10, 30), false},
		{"touches block start", at(8, 0), at(9, 0), false},
		{"contains session", at(11, 0), at(14, 0), true},
		{"touches session", at(13, 0), at(14, 0), false},
		{"cancelled session does not block", at(15, 0), at(16, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detector.HasConflict(context.Background(), mentorID, tt.start, tt.end)
			if err != nil {
				t.Fatalf("HasConflict() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasConflict() = %v, want %v", got, tt.want)
			}
		})
	}

	other, err := detector.HasConflict(context.Background(), uuid.New(), at(9, 0), at(10, 0))
	if err != nil || other {
		t.Errorf("other mentors never conflict: got %v, %v", other, err)
	}

	if _, err := detector.HasConflict(context.Background(), mentorID, at(10, 0), at(10, 0)); !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Errorf("HasConflict() with empty range error = %v, want ErrInvalidTimeRange", err)
	}
}

func TestConflictDetector_HasBookingConflict(t *testing.T) {
	t.Parallel()
	detector, mentorID, session := seedDetector(t)

	iv := func(start, end time.Time) domain.Interval { return domain.Interval{Start: start, End: end} }

	conflict, offered, err := detector.HasBookingConflict(context.Background(), mentorID, iv(at(9, 0), at(10, 0)), uuid.Nil)
	if err != nil || conflict || offered == nil {
		t.Fatalf("exact block: conflict=%v offered=%v err=%v", conflict, offered, err)
	}

	conflict, offered, err = detector.HasBookingConflict(context.Background(), mentorID, iv(at(9, 0), at(9, 30)), uuid.Nil)
	if err != nil || !conflict || offered != nil {
		t.Errorf("partial block: conflict=%v offered=%v err=%v", conflict, offered, err)
	}

	conflict, _, err = detector.HasBookingConflict(context.Background(), mentorID, iv(at(12, 30), at(13, 30)), uuid.Nil)
	if err != nil || !conflict {
		t.Errorf("overlapping session: conflict=%v err=%v", conflict, err)
	}

	conflict, _, err = detector.HasBookingConflict(context.Background(), mentorID, iv(at(12, 30), at(13, 30)), session.ID)
	if err != nil || conflict {
		t.Errorf("excluded session: conflict=%v err=%v", conflict, err)
	}
}
