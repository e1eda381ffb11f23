package schedule

import "github.com/phrazzld/mentorbook-api/internal/domain"

// OverlapsAnyBlock reports whether candidate intersects any block.
func OverlapsAnyBlock(candidate domain.Interval, blocks []domain.AvailabilityBlock) bool {
	for i := range blocks {
		if candidate.Overlaps(blocks[i].Interval()) {
			return true
		}
	}
	return false
}

// OverlapsAnyScheduled reports whether candidate intersects a session that is
// still scheduled. Completed, cancelled and rescheduled sessions never block.
func OverlapsAnyScheduled(candidate domain.Interval, sessions []domain.BookedSession) bool {
	for i := range sessions {
		if sessions[i].IsScheduled() && candidate.Overlaps(sessions[i].Interval()) {
			return true
		}
	}
	return false
}
