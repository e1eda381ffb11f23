package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewAvailabilityBlock(t *testing.T) {
	t.Parallel()
	mentorID := uuid.New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	block, err := NewAvailabilityBlock(mentorID, start, start.Add(time.Hour), "Zoom")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if block.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if block.Interval().Duration() != time.Hour {
		t.Errorf("Expected one hour block, got %v", block.Interval().Duration())
	}

	if _, err := NewAvailabilityBlock(uuid.Nil, start, start.Add(time.Hour), ""); err != ErrEmptyBlockMentorID {
		t.Errorf("Expected error %v, got %v", ErrEmptyBlockMentorID, err)
	}

	_, err = NewAvailabilityBlock(mentorID, start, start.Add(-time.Minute), "")
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("Expected error %v, got %v", ErrInvalidTimeRange, err)
	}
}

func TestNewInterval(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))

	iv, err := NewInterval(start, start.Add(time.Minute))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if iv.Start.Location() != time.UTC || iv.End.Location() != time.UTC {
		t.Error("Expected interval bounds in UTC")
	}

	if _, err := NewInterval(start, start); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}

	a := Interval{Start: start, End: start.Add(time.Hour)}
	b := Interval{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)}
	if a.Overlaps(b) || b.Overlaps(a) {
		t.Error("Expected touching intervals not to overlap")
	}
	if !a.Equal(Interval{Start: start.UTC(), End: start.Add(time.Hour).UTC()}) {
		t.Error("Expected intervals at the same instants to be equal")
	}
}
