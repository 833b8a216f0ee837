package api

import (
	"context"
	"net/http"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/ranking"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, ladder model.Ladder, n int) ([]ranking.Entry, error)
	Gainers(ctx context.Context, ladder model.Ladder, n int) ([]ranking.Entry, error)
	Losers(ctx context.Context, ladder model.Ladder, n int) ([]ranking.Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

type listFunc func(ctx context.Context, ladder model.Ladder, n int) ([]ranking.Entry, error)

// HandleGetLeaderboard handles GET /leaderboard?ladder=&limit= requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.deps.Leaderboard)
}

// HandleGetGainers handles GET /leaderboard/gainers requests.
func (h *LeaderboardHandler) HandleGetGainers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.deps.Gainers)
}

// HandleGetLosers handles GET /leaderboard/losers requests.
func (h *LeaderboardHandler) HandleGetLosers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.deps.Losers)
}

func (h *LeaderboardHandler) serve(w http.ResponseWriter, r *http.Request, list listFunc) {
	if !requireGet(w, r) {
		return
	}
	ladder, err := ladderParam(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	n, err := limitParam(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	entries, err := list(r.Context(), ladder, n)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if entries == nil {
		entries = []ranking.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
