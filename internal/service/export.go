package service

import (
	"context"
	"fmt"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/itinerary"
)

// tripLoader is the part of ItineraryService the exporter needs.
type tripLoader interface {
	Load(ctx context.Context, profileID string) ([]domain.Trip, error)
}

// ExportService flattens a profile's trips into export rows.
type ExportService struct {
	trips tripLoader
}

// NewExportService constructs an ExportService reading through trips.
func NewExportService(trips tripLoader) *ExportService {
	return &ExportService{trips: trips}
}

// Export returns one ExportRow per spot across all trips of profileID, in
// trip, day and visiting order. Days with no spots contribute one row with
// empty spot fields. Always returns a non-nil slice.
func (s *ExportService) Export(ctx context.Context, profileID string) ([]domain.ExportRow, error) {
	trips, err := s.trips.Load(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}
	return itinerary.ExportRows(trips), nil
}
