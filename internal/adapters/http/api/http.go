// Package api declares HTTP contracts and route registration helpers for the
// read-only reporting surface. Reads never block the sync run; they go through
// the service's store reads, which are safe at any time.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/valetudo/internal/adapters/repository"
	service "github.com/okian/valetudo/internal/app"
	"github.com/okian/valetudo/internal/domain/model"
)

// Service bundles the read operations the handlers need. Using an interface
// keeps the handler layer loosely coupled to the run coordinator.
type Service interface {
	Status() service.RunStatus
	Checkpoint(ctx context.Context) (model.Checkpoint, error)
	Top(ctx context.Context, n int) ([]model.Competitor, error)
	Competitor(ctx context.Context, id string) (model.Competitor, error)
	Features(ctx context.Context, key model.ContestKey) (model.FeatureVector, error)
}

// Server wires HTTP routes for the reporting API.
type Server struct {
	healthHandler     *HealthHandler
	statusHandler     *StatusHandler
	ratingsHandler    *RatingsHandler
	competitorHandler *CompetitorHandler
	featuresHandler   *FeaturesHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// ratings page size.
func NewServer(svc Service, maxLimit int) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statusHandler:     NewStatusHandler(svc),
		ratingsHandler:    NewRatingsHandler(svc, maxLimit),
		competitorHandler: NewCompetitorHandler(svc),
		featuresHandler:   NewFeaturesHandler(svc),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/api/run/status", MetricsMiddleware(s.statusHandler.HandleStatus, "run_status"))
	mux.HandleFunc("/api/ratings", MetricsMiddleware(s.ratingsHandler.HandleGetRatings, "ratings"))
	mux.HandleFunc("/api/competitors/", MetricsMiddleware(s.competitorHandler.HandleGetCompetitor, "competitor"))
	mux.HandleFunc("/api/contests/", MetricsMiddleware(s.featuresHandler.HandleGetFeatures, "contest_features"))
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

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
