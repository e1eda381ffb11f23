package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/mentorbook-api/internal/api/shared"
	scoring "github.com/phrazzld/mentorbook-api/internal/domain/matching"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
	"github.com/phrazzld/mentorbook-api/internal/service/matching"
)

// MatchService ranks mentors for a query.
type MatchService interface {
	Search(ctx context.Context, query scoring.Query) ([]matching.Match, error)
}

// MatchHandler handles mentor matching requests.
type MatchHandler struct {
	matchService MatchService
	logger       *slog.Logger
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matchService MatchService, logger *slog.Logger) *MatchHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for MatchHandler")
	}

	return &MatchHandler{
		matchService: matchService,
		logger:       logger.With(slog.String("component", "match_handler")),
	}
}

// FindMatches handles POST /api/matches.
func (h *MatchHandler) FindMatches(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req MatchRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	matches, err := h.matchService.Search(r.Context(), req.toQuery())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to find matches")
		return
	}

	log.Debug("matches served", slog.Int("count", len(matches)))
	shared.RespondWithJSON(w, r, http.StatusOK, matchesToResponse(matches))
}
