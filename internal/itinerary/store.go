package itinerary

import (
	"sync"
	"time"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/idgen"
)

// Change describes one state transition of a Store.
type Change struct {
	Prev State
	Next State

	// TripsChanged is true when the trip collection was replaced. Changes to
	// the active trip id or the category vocabulary alone leave it false.
	TripsChanged bool

	// Revision is the trip-collection revision after the change. It grows by
	// one each time TripsChanged is true.
	Revision uint64
}

// Store owns one session's itinerary State and serializes every mutation.
//
// Each mutation runs atomically under the store mutex. Subscribers are told
// about changes in the order they were applied, possibly on the goroutine of
// a later mutation. Subscribers may read from and write to the store.
type Store struct {
	mu      sync.Mutex
	state   State
	rev     uint64
	newID   idgen.Generator
	now     func() time.Time
	subs    map[int]func(Change)
	nextSub int
	pending []Change

	// notifyMu is held by the goroutine currently delivering pending changes.
	notifyMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the random id generator, typically with
// idgen.Sequence in tests.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Store) { s.newID = g }
}

// WithClock replaces time.Now as the source of "today" for new trips.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store holding initial. Pass a State built by
// DefaultState or Restore; the zero State is replaced by DefaultState.
func NewStore(initial State, opts ...Option) *Store {
	s := &Store{
		newID: idgen.New,
		now:   time.Now,
		subs:  make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(initial.Trips) == 0 {
		initial = DefaultState(s.now())
	}
	s.state = Restore(initial.Trips, initial.ActiveTripID, initial.Categories, s.now(), s.newID)
	return s
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// apply computes the next state with fn and publishes the change, if any.
func (s *Store) apply(fn func(State) State) {
	s.mu.Lock()
	prev := s.state
	next := fn(prev)
	tripsChanged := !sameSlice(prev.Trips, next.Trips)
	if !tripsChanged && prev.ActiveTripID == next.ActiveTripID && sameSlice(prev.Categories, next.Categories) {
		s.mu.Unlock()
		return
	}
	s.state = next
	if tripsChanged {
		s.rev++
	}
	s.pending = append(s.pending, Change{Prev: prev, Next: next, TripsChanged: tripsChanged, Revision: s.rev})
	s.mu.Unlock()

	s.drain()
}

// drain delivers queued changes. Only one goroutine delivers at a time; the
// others leave their changes in the queue for it.
func (s *Store) drain() {
	for {
		if !s.notifyMu.TryLock() {
			return
		}
		for {
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			ch := s.pending[0]
			s.pending = s.pending[1:]
			subs := make([]func(Change), 0, len(s.subs))
			for _, fn := range s.subs {
				subs = append(subs, fn)
			}
			s.mu.Unlock()

			for _, fn := range subs {
				fn(ch)
			}
		}
		s.notifyMu.Unlock()

		// A change queued between the last check and Unlock would otherwise
		// wait for the next mutation.
		s.mu.Lock()
		empty := len(s.pending) == 0
		s.mu.Unlock()
		if empty {
			return
		}
	}
}

// sameSlice reports whether a and b are the same slice, not merely equal.
// Operations always allocate a new backing array when they change a slice,
// so identity is enough to detect a change.
func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

// ---- queries ---------------------------------------------------------------

// Snapshot returns the current state. The returned value is never modified
// by the store; callers must not modify it either.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Trips returns the current trip collection.
func (s *Store) Trips() []domain.Trip {
	return s.Snapshot().Trips
}

// Categories returns the category vocabulary.
func (s *Store) Categories() []string {
	return s.Snapshot().Categories
}

// ActiveTrip returns the trip that day and spot operations target.
func (s *Store) ActiveTrip() (domain.Trip, bool) {
	return s.Snapshot().ActiveTrip()
}

// CurrentDay returns the day the active trip is viewing.
func (s *Store) CurrentDay() (domain.Day, bool) {
	return s.Snapshot().CurrentDay()
}

// Revision returns the current trip-collection revision. It starts at zero
// and increases by one with every change to the trip collection.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// ---- trip library ----------------------------------------------------------

// CreateTrip appends a trip with one empty day, makes it active and returns
// its id. It is never blocked by a lock.
func (s *Store) CreateTrip() string {
	var id string
	s.apply(func(st State) State {
		var next State
		next, id = createTrip(st, s.newID, s.now())
		return next
	})
	return id
}

// DeleteTrip removes a trip. When it was active, the first remaining trip
// becomes active. The last remaining trip cannot be deleted. Locked trips can
// be deleted.
func (s *Store) DeleteTrip(id string) {
	s.apply(func(st State) State { return deleteTrip(st, id) })
}

// SwitchTrip makes an existing trip active.
func (s *Store) SwitchTrip(id string) {
	s.apply(func(st State) State { return switchTrip(st, id) })
}

// ToggleTripLock flips the lock of a trip. It is the only edit allowed on a
// locked trip.
func (s *Store) ToggleTripLock(id string) {
	s.apply(func(st State) State { return toggleTripLock(st, id) })
}

// ImportData replaces the whole trip collection, typically with the result of
// a remote load, and activates its first trip. An empty collection resets the
// store to the seed trip. The category vocabulary is kept.
func (s *Store) ImportData(trips []domain.Trip) {
	s.apply(func(st State) State { return importData(st, trips, s.newID, s.now()) })
}

// ---- active trip -----------------------------------------------------------

// UpdateTripInfo merges name and destination into the active trip.
func (s *Store) UpdateTripInfo(p TripInfoPatch) {
	s.apply(func(st State) State { return updateTripInfo(st, p) })
}

// UpdateTripDates sets the start date of the active trip and resizes its days
// to cover startDate..endDate. Shrinking drops trailing days with their
// spots; callers must confirm that with the user first. Unparseable dates
// leave the trip unchanged.
func (s *Store) UpdateTripDates(startDate, endDate string) {
	s.apply(func(st State) State { return updateTripDates(st, startDate, endDate, s.newID) })
}

// UpdateFlight merges p into the outbound or inbound flight of the active trip.
func (s *Store) UpdateFlight(dir domain.FlightDirection, p FlightPatch) {
	s.apply(func(st State) State { return updateFlight(st, dir, p) })
}

// SetCurrentDayIndex changes which day of the active trip is viewed.
// Out-of-range indexes are ignored. Allowed on locked trips.
func (s *Store) SetCurrentDayIndex(index int) {
	s.apply(func(st State) State { return setCurrentDayIndex(st, index) })
}

// AddDay appends an empty day to the active trip and views it.
func (s *Store) AddDay() {
	s.apply(func(st State) State { return addDay(st, s.newID) })
}

// DeleteDay removes the day at index. A trip always keeps at least one day.
func (s *Store) DeleteDay(index int) {
	s.apply(func(st State) State { return deleteDay(st, index) })
}

// ReorderDays moves the day at oldIndex to newIndex.
func (s *Store) ReorderDays(oldIndex, newIndex int) {
	s.apply(func(st State) State { return reorderDays(st, oldIndex, newIndex) })
}

// UpdateDayInfo merges a custom location override into the day at dayIndex.
func (s *Store) UpdateDayInfo(dayIndex int, p DayInfoPatch) {
	s.apply(func(st State) State { return updateDayInfo(st, dayIndex, p) })
}

// ---- spots -----------------------------------------------------------------

// AddSpot appends a spot to the current day of the active trip.
func (s *Store) AddSpot(in SpotInput) {
	s.apply(func(st State) State { return addSpot(st, in, s.newID) })
}

// AddEmptySpot appends a placeholder spot at the (0,0) sentinel and returns
// its id, or "" when the edit was rejected.
func (s *Store) AddEmptySpot() string {
	var id string
	s.apply(func(st State) State {
		var next State
		next, id = addEmptySpot(st, s.newID)
		return next
	})
	return id
}

// RemoveSpot removes a spot from the current day.
func (s *Store) RemoveSpot(spotID string) {
	s.apply(func(st State) State { return removeSpot(st, spotID) })
}

// ReorderSpots moves the spot activeID to the position held by overID in
// the current day.
func (s *Store) ReorderSpots(activeID, overID string) {
	s.apply(func(st State) State { return reorderSpots(st, activeID, overID) })
}

// UpdateSpot merges p into a spot of the current day.
func (s *Store) UpdateSpot(spotID string, p SpotPatch) {
	s.apply(func(st State) State { return updateSpot(st, spotID, p) })
}

// ---- categories ------------------------------------------------------------

// AddCategory appends a label to the vocabulary unless it is already known.
func (s *Store) AddCategory(label string) {
	s.apply(func(st State) State { return addCategory(st, label) })
}

// RemoveCategory drops a label from the vocabulary. Spots keep their category.
func (s *Store) RemoveCategory(label string) {
	s.apply(func(st State) State { return removeCategory(st, label) })
}
