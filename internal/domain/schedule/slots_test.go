package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func block(mentorID uuid.UUID, start, end time.Time) domain.AvailabilityBlock {
	return domain.AvailabilityBlock{ID: uuid.New(), MentorID: mentorID, Start: start, End: end}
}

func session(mentorID uuid.UUID, start, end time.Time) domain.BookedSession {
	return domain.BookedSession{
		ID:       uuid.New(),
		MentorID: mentorID,
		MenteeID: uuid.New(),
		Start:    start,
		End:      end,
		Status:   domain.SessionStatusScheduled,
	}
}

func TestGenerateSlots(t *testing.T) {
	mentorID := uuid.New()

	t.Run("block without session is available", func(t *testing.T) {
		available, booked := GenerateSlots(
			[]domain.AvailabilityBlock{block(mentorID, at(9, 0), at(10, 0))},
			nil,
			day, day.Add(24*time.Hour),
		)

		require.Len(t, available, 1)
		assert.Empty(t, booked)
		assert.True(t, available[0].Available)
		assert.Equal(t, 60, available[0].DurationMinutes)
	})

	t.Run("block with exact session is booked once", func(t *testing.T) {
		available, booked := GenerateSlots(
			[]domain.AvailabilityBlock{block(mentorID, at(9, 0), at(10, 0))},
			[]domain.BookedSession{session(mentorID, at(9, 0), at(10, 0))},
			day, day.Add(24*time.Hour),
		)

		assert.Empty(t, available)
		require.Len(t, booked, 1)
		assert.False(t, booked[0].Available)
		assert.True(t, booked[0].Start.Equal(at(9, 0)))
	})

	t.Run("overlapping but not identical session leaves block available", func(t *testing.T) {
		available, booked := GenerateSlots(
			[]domain.AvailabilityBlock{block(mentorID, at(9, 0), at(10, 0))},
			[]domain.BookedSession{session(mentorID, at(9, 0), at(9, 30))},
			day, day.Add(24*time.Hour),
		)

		require.Len(t, available, 1)
		require.Len(t, booked, 1)
		assert.Equal(t, 30, booked[0].DurationMinutes)
	})

	t.Run("session without block is a standalone booked slot", func(t *testing.T) {
		available, booked := GenerateSlots(
			[]domain.AvailabilityBlock{block(mentorID, at(9, 0), at(10, 0))},
			[]domain.BookedSession{session(mentorID, at(10, 0), at(10, 30))},
			day, day.Add(24*time.Hour),
		)

		require.Len(t, available, 1)
		require.Len(t, booked, 1)
		assert.True(t, booked[0].Start.Equal(at(10, 0)))
		assert.True(t, booked[0].End.Equal(at(10, 30)))
		assert.Equal(t, 30, booked[0].DurationMinutes)
	})

	t.Run("block starting before range is excluded", func(t *testing.T) {
		available, booked := GenerateSlots(
			[]domain.AvailabilityBlock{block(mentorID, at(8, 0), at(11, 0))},
			nil,
			at(9, 0), at(12, 0),
		)

		assert.Empty(t, available)
		assert.Empty(t, booked)
	})

	t.Run("range bounds are inclusive", func(t *testing.T) {
		available, _ := GenerateSlots(
			[]domain.AvailabilityBlock{
				block(mentorID, at(9, 0), at(10, 0)),
				block(mentorID, at(12, 0), at(13, 0)),
			},
			nil,
			at(9, 0), at(12, 0),
		)

		assert.Len(t, available, 2)
	})

	t.Run("outputs are sorted and booked slots are unique by start", func(t *testing.T) {
		blocks := []domain.AvailabilityBlock{
			block(mentorID, at(15, 0), at(16, 0)),
			block(mentorID, at(9, 0), at(10, 0)),
			block(mentorID, at(11, 0), at(12, 0)),
		}
		sessions := []domain.BookedSession{
			session(mentorID, at(14, 0), at(14, 30)),
			session(mentorID, at(11, 0), at(12, 0)),
			session(mentorID, at(13, 0), at(13, 45)),
			session(mentorID, at(13, 0), at(13, 45)),
		}

		available, booked := GenerateSlots(blocks, sessions, day, day.Add(24*time.Hour))

		require.Len(t, available, 2)
		assert.True(t, available[0].Start.Before(available[1].Start))

		require.Len(t, booked, 3)
		seen := map[int64]bool{}
		for i, slot := range booked {
			if i > 0 {
				assert.True(t, booked[i-1].Start.Before(slot.Start))
			}
			assert.False(t, seen[slot.Start.UnixNano()])
			seen[slot.Start.UnixNano()] = true
		}
	})

	t.Run("empty inputs return empty non-nil lists", func(t *testing.T) {
		available, booked := GenerateSlots(nil, nil, day, day.Add(time.Hour))
		assert.NotNil(t, available)
		assert.NotNil(t, booked)
		assert.Empty(t, available)
		assert.Empty(t, booked)
	})
}

func TestDurationMinutes(t *testing.T) {
	assert.Equal(t, 45, DurationMinutes(at(9, 0), at(9, 45)))
	assert.Equal(t, 1, DurationMinutes(at(9, 0), at(9, 0).Add(90*time.Second)))
	assert.Equal(t, 0, DurationMinutes(at(9, 0), at(9, 0).Add(29*time.Second)))
}
