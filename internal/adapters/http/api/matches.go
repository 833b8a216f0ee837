package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/rating"
)

// MatchDependencies defines the interface for match submission.
type MatchDependencies interface {
	RecordMatch(ctx context.Context, rep service.MatchReport) (service.MatchOutcome, error)
	RecordDoubles(ctx context.Context, rep service.DoublesReport) (service.DoublesOutcome, error)
	LogHistory(ctx context.Context, m history.Match) (history.Match, error)
	Simulate(ctx context.Context, winnerID, loserID string) (rating.Projection, error)
}

// MatchHandler handles match reports, history backfills and projections.
type MatchHandler struct {
	deps MatchDependencies
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies) *MatchHandler {
	return &MatchHandler{deps: deps}
}

type matchRequest struct {
	ReportID    string `json:"report_id"`
	WinnerID    string `json:"winner_id"`
	LoserID     string `json:"loser_id"`
	WinnerScore int    `json:"winner_score"`
	LoserScore  int    `json:"loser_score"`
	SetCount    int    `json:"set_count"`
	WinnerSets  string `json:"winner_sets"`
	LoserSets   string `json:"loser_sets"`
}

type sideView struct {
	PlayerID string `json:"player_id"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
}

type setView struct {
	Winner int `json:"winner"`
	Loser  int `json:"loser"`
}

type matchResponse struct {
	ackResponse
	MatchID    string      `json:"match_id,omitempty"`
	Winner     *sideView   `json:"winner,omitempty"`
	Loser      *sideView   `json:"loser,omitempty"`
	Gain       int         `json:"gain"`
	Bonus      int         `json:"bonus"`
	Loss       int         `json:"loss"`
	Streak     int         `json:"streak"`
	HeadToHead *recordView `json:"head_to_head,omitempty"`
	Sets       []setView   `json:"sets,omitempty"`
}

type recordView struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// HandlePostMatch handles POST /matches requests.
func (h *MatchHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req matchRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	out, err := h.deps.RecordMatch(r.Context(), service.MatchReport{
		ReportID:    strings.TrimSpace(req.ReportID),
		WinnerID:    req.WinnerID,
		LoserID:     req.LoserID,
		WinnerScore: req.WinnerScore,
		LoserScore:  req.LoserScore,
		SetCount:    req.SetCount,
		WinnerSets:  req.WinnerSets,
		LoserSets:   req.LoserSets,
	})
	if errors.Is(err, service.ErrDuplicateReport) {
		writeJSON(w, http.StatusOK, matchResponse{ackResponse: ackResponse{Status: "duplicate", Duplicate: true}})
		return
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	resp := matchResponse{
		ackResponse: ackResponse{Status: "recorded"},
		MatchID:     out.MatchID,
		Winner:      &sideView{PlayerID: out.WinnerID, Before: out.WinnerBefore, After: out.WinnerAfter},
		Loser:       &sideView{PlayerID: out.LoserID, Before: out.LoserBefore, After: out.LoserAfter},
		Gain:        out.EloGain,
		Bonus:       out.Bonus,
		Loss:        out.EloLoss,
		Streak:      out.NewStreak,
		HeadToHead:  &recordView{Wins: out.HeadToHead.Wins, Losses: out.HeadToHead.Losses},
	}
	for _, s := range out.Sets {
		resp.Sets = append(resp.Sets, setView{Winner: s.Winner, Loser: s.Loser})
	}
	writeJSON(w, http.StatusOK, resp)
}

type doublesRequest struct {
	ReportID    string    `json:"report_id"`
	Winners     [2]string `json:"winners"`
	Losers      [2]string `json:"losers"`
	WinnerScore int       `json:"winner_score"`
	LoserScore  int       `json:"loser_score"`
	SetCount    int       `json:"set_count"`
	WinnerSets  string    `json:"winner_sets"`
	LoserSets   string    `json:"loser_sets"`
}

type doublesResponse struct {
	ackResponse
	MatchID     string         `json:"match_id,omitempty"`
	Before      map[string]int `json:"before,omitempty"`
	After       map[string]int `json:"after,omitempty"`
	DeltaWin    int            `json:"delta_win"`
	DeltaLoss   int            `json:"delta_loss"`
	WinnerScore int            `json:"winner_score"`
	LoserScore  int            `json:"loser_score"`
	Sets        []setView      `json:"sets,omitempty"`
}

// HandlePostDoubles handles POST /doubles requests.
func (h *MatchHandler) HandlePostDoubles(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req doublesRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	res, err := h.deps.RecordDoubles(r.Context(), service.DoublesReport{
		ReportID:    strings.TrimSpace(req.ReportID),
		Winners:     req.Winners,
		Losers:      req.Losers,
		WinnerScore: req.WinnerScore,
		LoserScore:  req.LoserScore,
		SetCount:    req.SetCount,
		WinnerSets:  req.WinnerSets,
		LoserSets:   req.LoserSets,
	})
	if errors.Is(err, service.ErrDuplicateReport) {
		writeJSON(w, http.StatusOK, doublesResponse{ackResponse: ackResponse{Status: "duplicate", Duplicate: true}})
		return
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	resp := doublesResponse{
		ackResponse: ackResponse{Status: "recorded"},
		MatchID:     res.MatchID,
		Before:      res.Before,
		After:       res.After,
		DeltaWin:    res.DeltaWin,
		DeltaLoss:   res.DeltaLoss,
		WinnerScore: res.WinnerScore,
		LoserScore:  res.LoserScore,
	}
	for _, s := range res.Sets {
		resp.Sets = append(resp.Sets, setView{Winner: s.Winner, Loser: s.Loser})
	}
	writeJSON(w, http.StatusOK, resp)
}

type historyRequest struct {
	MatchID           string `json:"match_id"`
	WinnerID          string `json:"winner_id"`
	LoserID           string `json:"loser_id"`
	WinnerScore       int    `json:"winner_score"`
	LoserScore        int    `json:"loser_score"`
	WinnerRatingAfter int    `json:"winner_rating_after"`
	LoserRatingAfter  int    `json:"loser_rating_after"`
	PlayedAt          string `json:"played_at"` // RFC3339, optional
}

type historyResponse struct {
	Status   string `json:"status"`
	MatchID  string `json:"match_id"`
	PlayedAt string `json:"played_at"`
}

// HandlePostHistory handles POST /history requests.
func (h *MatchHandler) HandlePostHistory(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req historyRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	m := history.Match{
		MatchID:           strings.TrimSpace(req.MatchID),
		WinnerID:          req.WinnerID,
		LoserID:           req.LoserID,
		WinnerScore:       req.WinnerScore,
		LoserScore:        req.LoserScore,
		WinnerRatingAfter: req.WinnerRatingAfter,
		LoserRatingAfter:  req.LoserRatingAfter,
	}
	if req.PlayedAt != "" {
		at, err := time.Parse(time.RFC3339, req.PlayedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid played_at; must be RFC3339"))
			return
		}
		m.At = at.UTC()
	}
	logged, err := h.deps.LogHistory(r.Context(), m)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, historyResponse{
		Status:   "logged",
		MatchID:  logged.MatchID,
		PlayedAt: logged.At.Format(time.RFC3339),
	})
}

type projectionResponse struct {
	Winner sideView `json:"winner"`
	Loser  sideView `json:"loser"`
	Gain   int      `json:"gain"`
	Bonus  int      `json:"bonus"`
	Loss   int      `json:"loss"`
	// Winner's pre-match expectation.
	Expected float64 `json:"expected"`
}

// HandleSimulate handles GET /simulate?winner=&loser= requests.
func (h *MatchHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	q := r.URL.Query()
	winner, loser := q.Get("winner"), q.Get("loser")
	p, err := h.deps.Simulate(r.Context(), winner, loser)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectionResponse{
		Winner:   sideView{PlayerID: strings.TrimSpace(winner), Before: p.WinnerBefore, After: p.WinnerAfter},
		Loser:    sideView{PlayerID: strings.TrimSpace(loser), Before: p.LoserBefore, After: p.LoserAfter},
		Gain:     p.EloGain,
		Bonus:    p.Bonus,
		Loss:     p.EloLoss,
		Expected: p.Delta.Expected,
	})
}
