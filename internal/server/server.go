package server

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"celestix/internal/database"
	"celestix/internal/metrics"
	"celestix/internal/models"
)

// Client-facing error messages. Causes are logged, never returned.
const (
	msgFetchFailed   = "Failed to fetch flight data"
	msgNotFound      = "Aircraft not found"
	msgLookupFailed  = "Failed to look up aircraft"
	contentTypeJSON  = "application/json"
	contentTypeHTML  = "text/html; charset=utf-8"
	contentTypePlain = "text/plain; charset=utf-8"
)

//go:embed static/planes.html
var planesPage []byte

// StateFetcher supplies the current aircraft snapshots
type StateFetcher interface {
	FetchStates(ctx context.Context) ([]models.AircraftState, error)
}

// AircraftLookup resolves registry metadata by transponder address
type AircraftLookup interface {
	Get(ctx context.Context, icao24 string) (*models.Aircraft, error)
}

// Server serves the map page and the planes relay
type Server struct {
	fetcher  StateFetcher
	registry AircraftLookup
}

type planesResponse struct {
	Planes []models.AircraftState `json:"planes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a server. registry may be nil, in which case the aircraft lookup route is not mounted.
func New(fetcher StateFetcher, registry AircraftLookup) *Server {
	return &Server{
		fetcher:  fetcher,
		registry: registry,
	}
}

// Handler builds the HTTP routing tree
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(prometheusMetrics)

	r.Get("/planes", s.handlePlanesPage)
	r.Get("/api/planes", s.handlePlanes)
	r.Get("/api/health", s.handleHealth)
	if s.registry != nil {
		r.Get("/api/aircraft/{icao24}", s.handleAircraft)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (s *Server) handlePlanesPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(planesPage)
}

func (s *Server) handlePlanes(w http.ResponseWriter, r *http.Request) {
	states, err := s.fetcher.FetchStates(r.Context())
	if err != nil {
		slog.Error("Error fetching flight data", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgFetchFailed})
		return
	}

	if states == nil {
		states = []models.AircraftState{}
	}
	metrics.RecordPlanesServed(len(states))

	if slog.Default().Enabled(r.Context(), slog.LevelDebug) {
		positioned := 0
		for i := range states {
			if states[i].HasPosition() {
				positioned++
			}
		}
		slog.Debug("Serving planes", "count", len(states), "with_position", positioned)
	}

	writeJSON(w, http.StatusOK, planesResponse{Planes: states})
}

func (s *Server) handleAircraft(w http.ResponseWriter, r *http.Request) {
	icao24 := chi.URLParam(r, "icao24")

	ac, err := s.registry.Get(r.Context(), icao24)
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgNotFound})
		return
	}
	if err != nil {
		slog.Error("Error looking up aircraft", "icao24", icao24, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgLookupFailed})
		return
	}

	writeJSON(w, http.StatusOK, ac)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", contentTypePlain)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// writeJSON marshals before writing so an encoding failure can still produce a 500
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("Error encoding response", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
