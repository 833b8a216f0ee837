package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
)

// AdminDependencies defines the interface for administrative overrides.
type AdminDependencies interface {
	SetStat(ctx context.Context, ladder model.Ladder, id string, field rating.Field, op rating.Op, amount int) (rating.StatChange, error)
	SetPeak(ctx context.Context, ladder model.Ladder, id string, peak int) (rating.StatChange, error)
	ModifyHeadToHead(ctx context.Context, a, b string, field rating.Field, op rating.Op, amount int) (model.Record, error)
	AwardMedal(ctx context.Context, id string, tier model.MedalTier, title string) (model.Medal, error)
	ClearHistory(ctx context.Context, id string) (int, error)
}

// AdminHandler handles admin overrides and medal awards.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type statRequest struct {
	Ladder   string `json:"ladder"`
	PlayerID string `json:"player_id"`
	Field    string `json:"field"`
	Op       string `json:"op"` // add, subtract or set; defaults to set
	Amount   int    `json:"amount"`
}

type statResponse struct {
	PlayerID string `json:"player_id"`
	Field    string `json:"field"`
	Old      int    `json:"old"`
	New      int    `json:"new"`
}

func newStatResponse(c rating.StatChange) statResponse {
	return statResponse{PlayerID: c.PlayerID, Field: c.Field.String(), Old: c.Old, New: c.New}
}

// HandleSetStat handles POST /admin/stat requests.
func (h *AdminHandler) HandleSetStat(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req statRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	ladder, ok := model.ParseLadder(strings.ToLower(strings.TrimSpace(req.Ladder)))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("ladder must be singles or doubles"))
		return
	}
	field, err := rating.ParseField(req.Field)
	if err != nil {
		writeFailure(w, err)
		return
	}
	op, err := rating.ParseOp(req.Op)
	if err != nil {
		writeFailure(w, err)
		return
	}
	change, err := h.deps.SetStat(r.Context(), ladder, strings.TrimSpace(req.PlayerID), field, op, req.Amount)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatResponse(change))
}

type peakRequest struct {
	Ladder   string `json:"ladder"`
	PlayerID string `json:"player_id"`
	Peak     int    `json:"peak"`
}

// HandleSetPeak handles POST /admin/peak requests.
func (h *AdminHandler) HandleSetPeak(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req peakRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	ladder, ok := model.ParseLadder(strings.ToLower(strings.TrimSpace(req.Ladder)))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("ladder must be singles or doubles"))
		return
	}
	change, err := h.deps.SetPeak(r.Context(), ladder, strings.TrimSpace(req.PlayerID), req.Peak)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatResponse(change))
}

type h2hEditRequest struct {
	PlayerID   string `json:"player_id"`
	OpponentID string `json:"opponent_id"`
	Field      string `json:"field"` // wins or losses
	Op         string `json:"op"`
	Amount     int    `json:"amount"`
}

// HandleHeadToHead handles POST /admin/h2h requests.
func (h *AdminHandler) HandleHeadToHead(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req h2hEditRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	field, err := rating.ParseField(req.Field)
	if err != nil {
		writeFailure(w, err)
		return
	}
	op, err := rating.ParseOp(req.Op)
	if err != nil {
		writeFailure(w, err)
		return
	}
	a, b := strings.TrimSpace(req.PlayerID), strings.TrimSpace(req.OpponentID)
	rec, err := h.deps.ModifyHeadToHead(r.Context(), a, b, field, op, req.Amount)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordView{Wins: rec.Wins, Losses: rec.Losses})
}

type medalRequest struct {
	PlayerID string `json:"player_id"`
	Tier     string `json:"tier"`
	Title    string `json:"title"`
}

// HandleMedal handles POST /medals requests.
func (h *AdminHandler) HandleMedal(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req medalRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	m, err := h.deps.AwardMedal(r.Context(), strings.TrimSpace(req.PlayerID), model.MedalTier(req.Tier), req.Title)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, medalView{Tier: string(m.Tier), Title: m.Title})
}

type clearHistoryRequest struct {
	PlayerID string `json:"player_id"`
}

type clearHistoryResponse struct {
	PlayerID string `json:"player_id"`
	Removed  int    `json:"removed"`
}

// HandleClearHistory handles POST /admin/clear-history requests.
func (h *AdminHandler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req clearHistoryRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id := strings.TrimSpace(req.PlayerID)
	n, err := h.deps.ClearHistory(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clearHistoryResponse{PlayerID: id, Removed: n})
}
