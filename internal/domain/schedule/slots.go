package schedule

import (
	"math"
	"sort"
	"time"

	"github.com/phrazzld/mentorbook-api/internal/domain"
)

// GenerateSlots derives the calendar view for [rangeStart, rangeEnd].
//
// A block is included only when its start lies inside the range (both bounds
// inclusive); a block that starts earlier and runs into the range is not shown.
// A block whose exact start and end match a session is reported as booked.
// Sessions in range that were not already emitted from a block (compared by
// start instant) are reported as standalone booked slots. Both lists are
// sorted by start.
func GenerateSlots(
	blocks []domain.AvailabilityBlock,
	sessions []domain.BookedSession,
	rangeStart, rangeEnd time.Time,
) (available []domain.TimeSlot, booked []domain.TimeSlot) {
	available = []domain.TimeSlot{}
	booked = []domain.TimeSlot{}
	bookedStarts := make(map[int64]struct{})

	for _, block := range blocks {
		if !inRange(block.Start, rangeStart, rangeEnd) {
			continue
		}

		slot := newSlot(block.Start, block.End)
		if hasExactSession(block, sessions) {
			if _, seen := bookedStarts[block.Start.UnixNano()]; seen {
				continue
			}
			slot.Available = false
			booked = append(booked, slot)
			bookedStarts[block.Start.UnixNano()] = struct{}{}
			continue
		}

		slot.Available = true
		available = append(available, slot)
	}

	for _, session := range sessions {
		if !inRange(session.Start, rangeStart, rangeEnd) {
			continue
		}
		if _, seen := bookedStarts[session.Start.UnixNano()]; seen {
			continue
		}
		booked = append(booked, newSlot(session.Start, session.End))
		bookedStarts[session.Start.UnixNano()] = struct{}{}
	}

	sortByStart(available)
	sortByStart(booked)
	return available, booked
}

// DurationMinutes returns the interval length rounded to the nearest minute.
func DurationMinutes(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}

func newSlot(start, end time.Time) domain.TimeSlot {
	return domain.TimeSlot{
		Start:           start,
		End:             end,
		DurationMinutes: DurationMinutes(start, end),
	}
}

func inRange(t, rangeStart, rangeEnd time.Time) bool {
	return !t.Before(rangeStart) && !t.After(rangeEnd)
}

func hasExactSession(block domain.AvailabilityBlock, sessions []domain.BookedSession) bool {
	for _, s := range sessions {
		if s.Start.Equal(block.Start) && s.End.Equal(block.End) {
			return true
		}
	}
	return false
}

func sortByStart(slots []domain.TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
}
