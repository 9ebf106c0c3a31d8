// Package handler implements the HTTP handlers of the itinerary API.
// All handlers are methods on Server. They are split into files per resource
// (health.go, trip.go, export.go) and share the Server dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/itinerary-planner/internal/domain"
)

// DefaultProfileID is used when a request carries no profileId and the
// server was not given another default.
const DefaultProfileID = "default-user"

// ItineraryServicer defines the business operations the trip handlers depend
// on. Declaring it here, in the consumer, lets handler tests inject a mock
// without touching the database or service layer.
type ItineraryServicer interface {
	Load(ctx context.Context, profileID string) ([]domain.Trip, error)
	Save(ctx context.Context, profileID string, trips []domain.Trip) error
	Delete(ctx context.Context, profileID string) error
}

// ExportServicer defines the operation the export handler depends on.
type ExportServicer interface {
	Export(ctx context.Context, profileID string) ([]domain.ExportRow, error)
}

// Server holds the dependencies of every handler.
type Server struct {
	trips          ItineraryServicer
	export         ExportServicer
	defaultProfile string
	log            *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultProfile sets the profile used when a request has no profileId.
func WithDefaultProfile(id string) Option {
	return func(s *Server) {
		if id != "" {
			s.defaultProfile = id
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer constructs the Server with all its dependencies. Either service
// may be nil when a test exercises only the other one.
func NewServer(trips ItineraryServicer, export ExportServicer, opts ...Option) *Server {
	s := &Server{
		trips:          trips,
		export:         export,
		defaultProfile: DefaultProfileID,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts every API route on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/trips", s.GetTrips)
		r.Post("/trips", s.PostTrips)
		r.Delete("/trips", s.DeleteTrips)
		r.Get("/export", s.GetExport)
	})
}

// Handler returns a chi router serving only the API routes, without
// middleware. main.go builds its own router; tests use this one.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}
