// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StandingsReader
	ResyncSubmitter
	RatingApplier
	StatsProvider
}

// StandingsReader serves contest scoreboards.
type StandingsReader interface {
	// Standings returns the ranked scoreboard; model.ErrNotFound when the
	// contest is unknown.
	Standings(ctx context.Context, contestID int64) (types.Standings, error)
}

// ResyncSubmitter accepts manual resync requests for async processing.
type ResyncSubmitter interface {
	dedupe.Deduper

	// Enqueue pushes a request for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, r model.ResyncRequest) bool
}

// RatingApplier applies ratings of a finished contest.
type RatingApplier interface {
	ApplyRating(ctx context.Context, contestID int64) types.RatingResult
}

// Server wires HTTP routes for the ops API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	standingsHandler *StandingsHandler
	resyncHandler    *ResyncHandler
	ratingHandler    *RatingHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		standingsHandler: NewStandingsHandler(deps),
		resyncHandler:    NewResyncHandler(deps),
		ratingHandler:    NewRatingHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /contests/{id}/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
	mux.HandleFunc("POST /contests/{id}/resync", MetricsMiddleware(s.resyncHandler.HandlePostResync, "resync"))
	mux.HandleFunc("POST /contests/{id}/rating", MetricsMiddleware(s.ratingHandler.HandlePostRating, "rating"))
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

// contestID reads the {id} path segment.
func contestID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid contest id %q", raw)
	}
	return id, nil
}

// isNotFound translates store not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound) || errors.Is(err, ErrNotFound)
}
