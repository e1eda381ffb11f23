package matching

import (
	"fmt"
	"strings"

	"github.com/phrazzld/mentorbook-api/internal/domain"
)

// Explanation thresholds
const (
	attributeReasonThreshold    = 0.7
	availabilityReasonThreshold = 0.8
	highRatingThreshold         = 4.5
)

// FallbackExplanation is returned when no individual reason applies.
const FallbackExplanation = "Potential match based on your search"

// Explain lists human-readable reasons for a score. It has no effect on ranking.
func Explain(candidate domain.MatchCandidate, query Query, score Score) []string {
	var reasons []string

	if score.Expertise >= attributeReasonThreshold {
		terms, fromText := expertiseTerms(query)
		if matched := matchedTags(candidate.ExpertiseTags, terms, fromText); len(matched) > 0 {
			reasons = append(reasons, fmt.Sprintf("Expertise in %s", strings.Join(matched, ", ")))
		}
	}
	if score.Industry >= attributeReasonThreshold {
		reasons = append(reasons, fmt.Sprintf("Experience in the %s industry", candidate.Industry))
	}
	if score.Stage >= attributeReasonThreshold {
		reasons = append(reasons, fmt.Sprintf("Works with %s stage companies", candidate.Stage))
	}
	if score.Availability >= availabilityReasonThreshold {
		reasons = append(reasons, "Available soon")
	}
	if candidate.Rating >= highRatingThreshold {
		reasons = append(reasons, fmt.Sprintf("Highly rated (%.1f)", candidate.Rating))
	}

	if len(reasons) == 0 {
		return []string{FallbackExplanation}
	}
	return reasons
}

// matchedTags returns the candidate tags that matched at least one term, in tag order.
func matchedTags(tags []string, terms []string, fromText bool) []string {
	var matched []string
	for _, tag := range tags {
		lowered := strings.ToLower(tag)
		for _, term := range terms {
			if termMatchesTag(term, lowered, fromText) {
				matched = append(matched, tag)
				break
			}
		}
	}
	return matched
}
