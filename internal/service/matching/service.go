// Package matching serves mentor search: it loads the candidate projection,
// scores every candidate against the query and returns the best matches.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/config"
	scoring "github.com/phrazzld/mentorbook-api/internal/domain/matching"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// candidateLimit caps how many mentor profiles one search scores.
const candidateLimit = 5000

// Match is one ranked search result.
type Match struct {
	CandidateID uuid.UUID     `json:"candidate_id"`
	DisplayName string        `json:"display_name,omitempty"`
	Score       float64       `json:"score"`
	Breakdown   scoring.Score `json:"breakdown"`
	Explanation []string      `json:"explanation"`
}

// Service ranks mentors for a query.
type Service struct {
	mentors     store.MentorStore
	scorer      *scoring.Scorer
	maxResults  int
	concurrency int
	logger      *slog.Logger
}

// WeightsFrom converts the configured weights.
func WeightsFrom(cfg config.MatchingConfig) scoring.Weights {
	return scoring.Weights{
		Expertise:    cfg.ExpertiseWeight,
		Industry:     cfg.IndustryWeight,
		Stage:        cfg.StageWeight,
		Availability: cfg.AvailabilityWeight,
	}
}

// NewService creates a search service. The configured weights must sum to 1.
func NewService(mentors store.MentorStore, cfg config.MatchingConfig, logger *slog.Logger) (*Service, error) {
	if mentors == nil {
		return nil, fmt.Errorf("mentor store cannot be nil")
	}
	scorer, err := scoring.NewScorer(WeightsFrom(cfg))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	return &Service{
		mentors:     mentors,
		scorer:      scorer,
		maxResults:  maxResults,
		concurrency: cfg.Concurrency,
		logger:      logger.With(slog.String("component", "matching_service")),
	}, nil
}

// Search returns up to the configured number of matches, best first.
// Candidates with equal scores keep the store's order.
func (s *Service) Search(ctx context.Context, query scoring.Query) ([]Match, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query = normalize(query)
	candidates, err := s.mentors.ListCandidates(ctx, candidateLimit)
	if err != nil {
		log.Error("failed to load match candidates", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load match candidates: %w", err)
	}

	ranked, err := s.scorer.RankParallel(ctx, candidates, query, s.concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to rank candidates: %w", err)
	}

	if len(ranked) > s.maxResults {
		ranked = ranked[:s.maxResults]
	}

	matches := make([]Match, len(ranked))
	for i, r := range ranked {
		matches[i] = Match{
			CandidateID: r.Candidate.ID,
			DisplayName: r.Candidate.DisplayName,
			Score:       r.Score.Total,
			Breakdown:   r.Score,
			Explanation: r.Explanation,
		}
	}

	log.Debug("match search completed",
		slog.Int("candidates", len(candidates)),
		slog.Int("returned", len(matches)))
	return matches, nil
}

func normalize(q scoring.Query) scoring.Query {
	q.Text = strings.TrimSpace(q.Text)
	q.Industry = strings.TrimSpace(q.Industry)
	q.Stage = strings.TrimSpace(q.Stage)

	expertise := make([]string, 0, len(q.Expertise))
	for _, e := range q.Expertise {
		if e = strings.TrimSpace(e); e != "" {
			expertise = append(expertise, e)
		}
	}
	q.Expertise = expertise
	return q
}
