// Package service contains the business logic of the itinerary API.
// Services validate inputs, enforce business rules and orchestrate repo
// calls. No SQL lives here; services depend on repo interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/metrics"
	"github.com/pkordes/itinerary-planner/internal/repo"
)

// MaxProfileIDLength bounds profile ids accepted by the service.
const MaxProfileIDLength = 128

// DefaultCacheTTL is used when NewItineraryService gets a non-positive TTL.
const DefaultCacheTTL = 30 * time.Second

// ItineraryService loads and saves the trip collection of a profile.
//
// Loads are cached per profile for a short TTL and concurrent loads of the
// same profile share one database round-trip. Saves write through the cache.
type ItineraryService struct {
	repo     repo.ItineraryRepo
	cache    *cache.Cache
	group    singleflight.Group
	validate *validator.Validate
	metrics  *metrics.Metrics

	// mu guards gens and orders cache writes against it. A load caches what
	// it read only if no write to the profile finished in the meantime.
	mu   sync.Mutex
	gens map[string]uint64
}

// ServiceOption configures an ItineraryService.
type ServiceOption func(*ItineraryService)

// WithMetrics makes the service count its operations in m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *ItineraryService) { s.metrics = m }
}

// NewItineraryService constructs an ItineraryService backed by r.
func NewItineraryService(r repo.ItineraryRepo, ttl time.Duration, opts ...ServiceOption) *ItineraryService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s := &ItineraryService{
		repo:     r,
		cache:    cache.New(ttl, 2*ttl),
		gens:     make(map[string]uint64),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the trips stored for profileID. A profile that never saved
// has an empty, non-nil collection. The returned slice is shared with the
// cache; callers must not modify it.
func (s *ItineraryService) Load(ctx context.Context, profileID string) ([]domain.Trip, error) {
	if err := validateProfileID(profileID); err != nil {
		s.metrics.ObserveOp("load", metrics.ResultInvalid)
		return nil, err
	}
	if cached, found := s.cache.Get(profileID); found {
		s.metrics.ObserveOp("load", metrics.ResultCacheHit)
		return cached.([]domain.Trip), nil
	}

	v, err, shared := s.group.Do(profileID, func() (any, error) {
		s.mu.Lock()
		gen := s.gens[profileID]
		s.mu.Unlock()

		it, err := s.repo.Get(ctx, profileID)
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Trip{}, nil
		}
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.gens[profileID] == gen {
			s.cache.Set(profileID, it.Trips, cache.DefaultExpiration)
		}
		s.mu.Unlock()
		return it.Trips, nil
	})
	if err != nil {
		s.metrics.ObserveOp("load", metrics.ResultError)
		return nil, fmt.Errorf("service.ItineraryService.Load: %w", err)
	}
	if shared {
		s.metrics.ObserveOp("load", metrics.ResultCoalesced)
	} else {
		s.metrics.ObserveOp("load", metrics.ResultOK)
	}
	return v.([]domain.Trip), nil
}

// Save validates trips and replaces the stored collection of profileID.
// Returns domain.ErrValidation if the payload breaks the trip invariants.
func (s *ItineraryService) Save(ctx context.Context, profileID string, trips []domain.Trip) error {
	if err := validateProfileID(profileID); err != nil {
		s.metrics.ObserveOp("save", metrics.ResultInvalid)
		return err
	}
	if err := s.validateTrips(trips); err != nil {
		s.metrics.ObserveOp("save", metrics.ResultInvalid)
		return err
	}

	it, err := s.repo.Upsert(ctx, profileID, trips)
	if err != nil {
		s.invalidate(profileID, nil)
		s.metrics.ObserveOp("save", metrics.ResultError)
		return fmt.Errorf("service.ItineraryService.Save: %w", err)
	}
	s.invalidate(profileID, it.Trips)
	s.metrics.ObserveOp("save", metrics.ResultOK)
	s.metrics.ObserveSavedTrips(len(trips))
	return nil
}

// Delete removes the stored collection of profileID.
// Returns domain.ErrNotFound if there was none.
func (s *ItineraryService) Delete(ctx context.Context, profileID string) error {
	if err := validateProfileID(profileID); err != nil {
		s.metrics.ObserveOp("delete", metrics.ResultInvalid)
		return err
	}
	err := s.repo.Delete(ctx, profileID)
	s.invalidate(profileID, nil)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.metrics.ObserveOp("delete", metrics.ResultNotFound)
	case err != nil:
		s.metrics.ObserveOp("delete", metrics.ResultError)
	default:
		s.metrics.ObserveOp("delete", metrics.ResultOK)
	}
	if err != nil {
		return fmt.Errorf("service.ItineraryService.Delete: %w", err)
	}
	return nil
}

// invalidate records a finished write to profileID. The cache then holds
// trips, or nothing when trips is nil. Loads already in flight no longer
// cache what they read, and later loads do not join them.
func (s *ItineraryService) invalidate(profileID string, trips []domain.Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[profileID]++
	if trips == nil {
		s.cache.Delete(profileID)
	} else {
		s.cache.Set(profileID, trips, cache.DefaultExpiration)
	}
	s.group.Forget(profileID)
}

// validateTrips enforces the invariants every stored collection must hold:
//   - trip, day and spot ids are present (struct tags);
//   - every trip has at least one day (struct tags);
//   - currentDayIndex points at one of the trip's days;
//   - trip ids are unique.
func (s *ItineraryService) validateTrips(trips []domain.Trip) error {
	if trips == nil {
		return fmt.Errorf("%w: body must be a JSON array of trips", domain.ErrValidation)
	}
	seen := make(map[string]bool, len(trips))
	for i, t := range trips {
		if err := s.validate.Struct(t); err != nil {
			return fmt.Errorf("%w: trips[%d]: %s", domain.ErrValidation, i, describe(err))
		}
		if t.CurrentDayIndex >= len(t.Days) {
			return fmt.Errorf("%w: trips[%d]: currentDayIndex %d out of range", domain.ErrValidation, i, t.CurrentDayIndex)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: trips[%d]: duplicate id %q", domain.ErrValidation, i, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

func validateProfileID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: profileId is required", domain.ErrValidation)
	}
	if len(id) > MaxProfileIDLength {
		return fmt.Errorf("%w: profileId longer than %d bytes", domain.ErrValidation, MaxProfileIDLength)
	}
	return nil
}

// describe turns validator errors into a short message naming the first
// failing field.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return err.Error()
}
