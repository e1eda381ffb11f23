package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Availability block validation errors
var (
	ErrEmptyBlockID       = errors.New("availability block ID cannot be empty")
	ErrEmptyBlockMentorID = errors.New("availability block mentor ID cannot be empty")
)

// AvailabilityBlock is an open, not-yet-booked window declared by a mentor.
// It is removed when a booking consumes it or the mentor revokes it.
type AvailabilityBlock struct {
	ID        uuid.UUID `json:"id"`
	MentorID  uuid.UUID `json:"mentor_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAvailabilityBlock creates a validated block with a fresh ID.
func NewAvailabilityBlock(mentorID uuid.UUID, start, end time.Time, location string) (*AvailabilityBlock, error) {
	block := &AvailabilityBlock{
		ID:        uuid.New(),
		MentorID:  mentorID,
		Start:     start.UTC(),
		End:       end.UTC(),
		Location:  location,
		CreatedAt: time.Now().UTC(),
	}

	if err := block.Validate(); err != nil {
		return nil, err
	}

	return block, nil
}

// Validate checks if the block has valid data.
func (b *AvailabilityBlock) Validate() error {
	if b.ID == uuid.Nil {
		return ErrEmptyBlockID
	}
	if b.MentorID == uuid.Nil {
		return ErrEmptyBlockMentorID
	}
	return b.Interval().Validate()
}

// Interval returns the block's time range.
func (b *AvailabilityBlock) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}
