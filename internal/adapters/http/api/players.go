package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/ranking"
)

// PlayerDependencies defines the interface for player registration and
// per-player queries.
type PlayerDependencies interface {
	Register(ctx context.Context, ladder model.Ladder, id string) (model.Player, bool, error)
	Stats(ctx context.Context, ladder model.Ladder, id string) (service.PlayerStats, error)
	History(ctx context.Context, id string) (service.PlayerHistory, error)
}

// PlayerHandler handles player requests.
type PlayerHandler struct {
	deps PlayerDependencies
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies) *PlayerHandler {
	return &PlayerHandler{deps: deps}
}

type registerRequest struct {
	PlayerID string `json:"player_id"`
	Ladder   string `json:"ladder"`
}

type medalView struct {
	Tier  string `json:"tier"`
	Title string `json:"title"`
}

type playerView struct {
	PlayerID    string                `json:"player_id"`
	Rating      int                   `json:"rating"`
	PeakRating  int                   `json:"peak_rating"`
	Wins        int                   `json:"wins"`
	Losses      int                   `json:"losses"`
	Streak      int                   `json:"streak"`
	AllTimeGain int                   `json:"all_time_gain"`
	AllTimeLoss int                   `json:"all_time_loss"`
	Medals      []medalView           `json:"medals"`
	HeadToHead  map[string]recordView `json:"head_to_head,omitempty"`
}

func newPlayerView(p model.Player) playerView {
	v := playerView{
		PlayerID:    p.ID,
		Rating:      p.Rating,
		PeakRating:  p.PeakRating,
		Wins:        p.Wins,
		Losses:      p.Losses,
		Streak:      p.Streak,
		AllTimeGain: p.AllTimeGain,
		AllTimeLoss: p.AllTimeLoss,
		Medals:      make([]medalView, 0, len(p.Medals)),
	}
	for _, m := range p.Medals {
		v.Medals = append(v.Medals, medalView{Tier: string(m.Tier), Title: m.Title})
	}
	if len(p.HeadToHead) > 0 {
		v.HeadToHead = make(map[string]recordView, len(p.HeadToHead))
		for opp, r := range p.HeadToHead {
			v.HeadToHead[opp] = recordView{Wins: r.Wins, Losses: r.Losses}
		}
	}
	return v
}

type registerResponse struct {
	Created bool       `json:"created"`
	Player  playerView `json:"player"`
}

type statsResponse struct {
	playerView
	WinRate float64        `json:"win_rate"`
	Rank    int            `json:"rank"`
	Above   *ranking.Entry `json:"above,omitempty"`
	Below   *ranking.Entry `json:"below,omitempty"`
}

type historyEntryView struct {
	MatchID             string `json:"match_id"`
	Result              string `json:"result"`
	RatingAfter         int    `json:"rating_after"`
	OpponentID          string `json:"opponent_id"`
	OpponentRatingAfter int    `json:"opponent_rating_after"`
	Score               int    `json:"score"`
	OpponentScore       int    `json:"opponent_score"`
	RecordedAt          string `json:"recorded_at"`
}

type playerHistoryResponse struct {
	PlayerID string             `json:"player_id"`
	Entries  []historyEntryView `json:"entries"`
	Trend    []int              `json:"trend"`
}

// HandleRegister handles POST /players requests.
func (h *PlayerHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	ladder, ok := model.ParseLadder(strings.ToLower(strings.TrimSpace(req.Ladder)))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("ladder must be singles or doubles"))
		return
	}
	p, created, err := h.deps.Register(r.Context(), ladder, req.PlayerID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, registerResponse{Created: created, Player: newPlayerView(p)})
}

// HandleGetPlayer handles GET /players/{id} and GET /players/{id}/history.
func (h *PlayerHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/players/")
	id, rest, _ := strings.Cut(path, "/")
	switch {
	case id == "":
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
	case rest == "":
		h.stats(w, r, id)
	case rest == "history":
		h.history(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *PlayerHandler) stats(w http.ResponseWriter, r *http.Request, id string) {
	ladder, err := ladderParam(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	st, err := h.deps.Stats(r.Context(), ladder, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		playerView: newPlayerView(st.Player),
		WinRate:    st.WinRate,
		Rank:       st.Standing.Self.Rank,
		Above:      st.Standing.Above,
		Below:      st.Standing.Below,
	})
}

func (h *PlayerHandler) history(w http.ResponseWriter, r *http.Request, id string) {
	ph, err := h.deps.History(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	resp := playerHistoryResponse{
		PlayerID: ph.PlayerID,
		Entries:  make([]historyEntryView, 0, len(ph.Entries)),
		Trend:    ph.Trend,
	}
	for _, e := range ph.Entries {
		resp.Entries = append(resp.Entries, historyEntryView{
			MatchID:             e.MatchID,
			Result:              string(e.Result),
			RatingAfter:         e.RatingAfter,
			OpponentID:          e.OpponentID,
			OpponentRatingAfter: e.OpponentRatingAfter,
			Score:               e.Score,
			OpponentScore:       e.OpponentScore,
			RecordedAt:          e.RecordedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
