package api

import (
	"context"
	"net/http"

	"github.com/okian/rally/internal/domain/ranking"
)

// PairDependencies defines the interface for pairwise summaries.
type PairDependencies interface {
	HeadToHead(ctx context.Context, a, b string) (ranking.H2H, error)
	Rivalries(ctx context.Context, n int) ([]ranking.Rivalry, error)
	Duos(ctx context.Context, n int) ([]ranking.Duo, error)
}

// PairHandler handles head-to-head, rivalry and partnership requests.
type PairHandler struct {
	deps PairDependencies
}

// NewPairHandler creates a new pair handler.
func NewPairHandler(deps PairDependencies) *PairHandler {
	return &PairHandler{deps: deps}
}

// HandleHeadToHead handles GET /h2h?a=&b= requests.
func (h *PairHandler) HandleHeadToHead(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	res, err := h.deps.HeadToHead(r.Context(), a, b)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRivalries handles GET /rivalries?limit= requests.
func (h *PairHandler) HandleRivalries(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	n, err := limitParam(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	res, err := h.deps.Rivalries(r.Context(), n)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if res == nil {
		res = []ranking.Rivalry{}
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDuos handles GET /duos?limit= requests.
func (h *PairHandler) HandleDuos(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	n, err := limitParam(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	res, err := h.deps.Duos(r.Context(), n)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if res == nil {
		res = []ranking.Duo{}
	}
	writeJSON(w, http.StatusOK, res)
}
