// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"

	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/ranking"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/pkg/logger"
)

// Dependencies bundles everything the handlers need from the ladder service.
// Each handler only depends on its own slice of it.
type Dependencies interface {
	MatchDependencies
	PlayerDependencies
	LeaderboardDependencies
	PairDependencies
	AdminDependencies
	StatsProvider
}

// Server wires HTTP routes for the ladder API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	matchHandler       *MatchHandler
	playerHandler      *PlayerHandler
	leaderboardHandler *LeaderboardHandler
	pairHandler        *PairHandler
	adminHandler       *AdminHandler

	allowedOrigins []string
	logger         logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the logger used by the request middleware.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins sets the CORS origins. Empty means any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		matchHandler:       NewMatchHandler(deps),
		playerHandler:      NewPlayerHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		pairHandler:        NewPairHandler(deps),
		adminHandler:       NewAdminHandler(deps),
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/matches", MetricsMiddleware(s.matchHandler.HandlePostMatch, "matches"))
	mux.HandleFunc("/doubles", MetricsMiddleware(s.matchHandler.HandlePostDoubles, "doubles"))
	mux.HandleFunc("/history", MetricsMiddleware(s.matchHandler.HandlePostHistory, "history"))
	mux.HandleFunc("/simulate", MetricsMiddleware(s.matchHandler.HandleSimulate, "simulate"))

	mux.HandleFunc("/players", MetricsMiddleware(s.playerHandler.HandleRegister, "players"))
	mux.HandleFunc("/players/", MetricsMiddleware(s.playerHandler.HandleGetPlayer, "player"))

	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/leaderboard/gainers", MetricsMiddleware(s.leaderboardHandler.HandleGetGainers, "gainers"))
	mux.HandleFunc("/leaderboard/losers", MetricsMiddleware(s.leaderboardHandler.HandleGetLosers, "losers"))

	mux.HandleFunc("/h2h", MetricsMiddleware(s.pairHandler.HandleHeadToHead, "h2h"))
	mux.HandleFunc("/rivalries", MetricsMiddleware(s.pairHandler.HandleRivalries, "rivalries"))
	mux.HandleFunc("/duos", MetricsMiddleware(s.pairHandler.HandleDuos, "duos"))

	mux.HandleFunc("/medals", MetricsMiddleware(s.adminHandler.HandleMedal, "medals"))
	mux.HandleFunc("/admin/stat", MetricsMiddleware(s.adminHandler.HandleSetStat, "admin_stat"))
	mux.HandleFunc("/admin/h2h", MetricsMiddleware(s.adminHandler.HandleHeadToHead, "admin_h2h"))
	mux.HandleFunc("/admin/peak", MetricsMiddleware(s.adminHandler.HandleSetPeak, "admin_peak"))
	mux.HandleFunc("/admin/clear-history", MetricsMiddleware(s.adminHandler.HandleClearHistory, "admin_clear_history"))
}

// Handler returns the routes wrapped in the request-id and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	})
	return RequestID(s.logger)(c.Handler(mux))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure translates a service error into a status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrIncompatibleHistory):
		return http.StatusConflict, "incompatible_history"
	case errors.Is(err, ranking.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, rating.ErrUnregistered), errors.Is(err, history.ErrUnregistered):
		return http.StatusBadRequest, "unregistered"
	case errors.Is(err, rating.ErrSamePlayer), errors.Is(err, history.ErrSamePlayer),
		errors.Is(err, ranking.ErrSamePlayer):
		return http.StatusBadRequest, "same_player"
	case errors.Is(err, rating.ErrDuplicatePlayer):
		return http.StatusBadRequest, "duplicate_player"
	case errors.Is(err, rating.ErrInvalidInput), errors.Is(err, history.ErrInvalidEntry),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

// ladderParam reads the optional ladder query parameter.
func ladderParam(r *http.Request) (model.Ladder, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("ladder")))
	l, ok := model.ParseLadder(raw)
	if !ok {
		return model.Singles, errors.Join(ErrBadRequest, errors.New("ladder must be singles or doubles"))
	}
	return l, nil
}

// limitParam reads the optional limit query parameter; 0 means the
// service default.
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.Join(ErrBadRequest, errors.New("limit must be a positive integer"))
	}
	return n, nil
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return false
	}
	return true
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return false
	}
	return true
}

// compile-time check that the ladder service satisfies the handlers.
var _ Dependencies = (*service.Service)(nil)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]interface{}
}
