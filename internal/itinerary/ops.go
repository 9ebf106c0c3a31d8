package itinerary

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/idgen"
)

// MaxTripDays bounds the day count UpdateTripDates will produce. Larger
// ranges are treated as invalid input.
const MaxTripDays = 366

// ---- trip library ----------------------------------------------------------

func createTrip(s State, newID idgen.Generator, today time.Time) (State, string) {
	id := newID()
	t := domain.Trip{
		ID:          id,
		Name:        "新行程 " + strconv.Itoa(len(s.Trips)+1),
		Destination: NewTripDestination,
		StartDate:   today.Format(dateLayout),
		Days:        []domain.Day{emptyDay(newID)},
	}
	trips := make([]domain.Trip, 0, len(s.Trips)+1)
	trips = append(trips, s.Trips...)
	s.Trips = append(trips, t)
	s.ActiveTripID = id
	return s, id
}

// deleteTrip ignores the lock flag: removing a trip from the library is not
// an edit of its content.
func deleteTrip(s State, id string) State {
	i := tripIndex(s.Trips, id)
	if len(s.Trips) <= 1 || i < 0 {
		return s
	}
	s.Trips = slices.Delete(slices.Clone(s.Trips), i, i+1)
	if s.ActiveTripID == id {
		s.ActiveTripID = s.Trips[0].ID
	}
	return s
}

func switchTrip(s State, id string) State {
	if tripIndex(s.Trips, id) < 0 {
		return s
	}
	s.ActiveTripID = id
	return s
}

func toggleTripLock(s State, id string) State {
	i := tripIndex(s.Trips, id)
	if i < 0 {
		return s
	}
	t := s.Trips[i]
	t.IsLocked = !t.IsLocked
	return withTrip(s, i, t)
}

// importData replaces the whole collection and activates its first trip.
func importData(s State, trips []domain.Trip, newID idgen.Generator, today time.Time) State {
	next := Restore(trips, "", s.Categories, today, newID)
	next.Categories = s.Categories
	return next
}

// ---- active trip -----------------------------------------------------------

func updateTripInfo(s State, p TripInfoPatch) State {
	return editActive(s, func(t domain.Trip) (domain.Trip, bool) {
		return p.apply(t), true
	})
}

func updateTripDates(s State, startDate, endDate string, newID idgen.Generator) State {
	n, ok := dayCount(startDate, endDate)
	if !ok {
		return s
	}
	return editActive(s, func(t domain.Trip) (domain.Trip, bool) {
		if n == len(t.Days) && startDate == t.StartDate {
			return t, false
		}
		var days []domain.Day
		if n > len(t.Days) {
			days = make([]domain.Day, 0, n)
			days = append(days, t.Days...)
			for len(days) < n {
				days = append(days, emptyDay(newID))
			}
		} else {
			// Truncation drops the trailing days together with their spots.
			days = slices.Clone(t.Days[:n])
		}
		t.StartDate = startDate
		t.Days = days
		t.CurrentDayIndex = clampIndex(t.CurrentDayIndex, len(days))
		return t, true
	})
}

// dayCount returns ceil(|end-start| in days) + 1.
func dayCount(startDate, endDate string) (int, bool) {
	start, ok := parseDate(startDate)
	if !ok {
		return 0, false
	}
	end, ok := parseDate(endDate)
	if !ok {
		return 0, false
	}
	diff := end.Sub(start)
	if diff < 0 {
		diff = -diff
	}
	n := int(math.Ceil(diff.Hours()/24)) + 1
	if n < 1 || n > MaxTripDays {
		return 0, false
	}
	return n, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func updateFlight(s State, dir domain.FlightDirection, p FlightPatch) State {
	return editActive(s, func(t domain.Trip) (domain.Trip, bool) {
		switch dir {
		case domain.Outbound:
			t.Outbound = p.apply(t.Outbound)
		case domain.Inbound:
			t.Inbound = p.apply(t.Inbound)
		default:
			return t, false
		}
		return t, true
	})
}

// setCurrentDayIndex is navigation, so it is allowed on locked trips.
func setCurrentDayIndex(s State, index int) State {
	i := s.activeIndex()
	if i < 0 {
		return s
	}
	t := s.Trips[i]
	if index < 0 || index >= len(t.Days) || index == t.CurrentDayIndex {
		return s
	}
	t.CurrentDayIndex = index
	return withTrip(s, i, t)
}

// ---- days ------------------------------------------------------------------

func addDay(s State, newID idgen.Generator) State {
	return editActive(s, func(t domain.Trip) (domain.Trip, bool) {
		days := make([]domain.Day, 0, len(t.Days)+1)
		days = append(days, t.Days...)
		t.Days = append(days, emptyDay(newID))
		t.CurrentDayIndex = len(t.Days) - 1
		return t, true
	})
}

func deleteDay(s State, index int) State {
	return editActive(s, func(t domain.Trip) (domain.Trip, bool) {
		if len(t.Days) <= 1 || index < 0 || index >= len(t.Days) {
			return t, false
		}
		t.Days = slices.Delete(slices.Clone(t.Days), index, index+1)
		t.CurrentDayIndex = clampIndex(t.CurrentDayIndex, len(t.Days))
		return t, true
	})
}

func reorderDays(s State, oldIndex, newIndex int) State {
	return editActive(s, func(t domain.Trip) (domain.Trip, bool) {
		days, ok := move(t.Days, oldIndex, newIndex)
		if !ok {
			return t, false
		}
		t.Days = days
		return t, true
	})
}

func updateDayInfo(s State, dayIndex int, p DayInfoPatch) State {
	return editActive(s, func(t domain.Trip) (domain.Trip, bool) {
		if dayIndex < 0 || dayIndex >= len(t.Days) {
			return t, false
		}
		return withDay(t, dayIndex, p.apply(t.Days[dayIndex])), true
	})
}

// ---- spots in the current day ----------------------------------------------

func addSpot(s State, in SpotInput, newID idgen.Generator) State {
	return editCurrentDay(s, func(d domain.Day) (domain.Day, bool) {
		sp := domain.Spot{
			ID:       newID(),
			Name:     in.Name,
			Category: DefaultCategory,
			Website:  in.Website,
			Note:     in.Note,
			Location: in.Location,
			Address:  in.Address,
			Rating:   clonePtr(in.Rating),
		}
		return withSpotAppended(d, sp), true
	})
}

func addEmptySpot(s State, newID idgen.Generator) (State, string) {
	var id string
	next := editCurrentDay(s, func(d domain.Day) (domain.Day, bool) {
		id = newID()
		sp := domain.Spot{
			ID:       id,
			Name:     PlaceholderSpotName,
			Category: DefaultCategory,
		}
		return withSpotAppended(d, sp), true
	})
	return next, id
}

func removeSpot(s State, spotID string) State {
	return editCurrentDay(s, func(d domain.Day) (domain.Day, bool) {
		i := spotIndex(d.Spots, spotID)
		if i < 0 {
			return d, false
		}
		d.Spots = slices.Delete(slices.Clone(d.Spots), i, i+1)
		return d, true
	})
}

func reorderSpots(s State, activeID, overID string) State {
	return editCurrentDay(s, func(d domain.Day) (domain.Day, bool) {
		spots, ok := move(d.Spots, spotIndex(d.Spots, activeID), spotIndex(d.Spots, overID))
		if !ok {
			return d, false
		}
		d.Spots = spots
		return d, true
	})
}

func updateSpot(s State, spotID string, p SpotPatch) State {
	return editCurrentDay(s, func(d domain.Day) (domain.Day, bool) {
		i := spotIndex(d.Spots, spotID)
		if i < 0 {
			return d, false
		}
		spots := slices.Clone(d.Spots)
		spots[i] = p.apply(spots[i])
		d.Spots = spots
		return d, true
	})
}

// ---- categories ------------------------------------------------------------

func addCategory(s State, label string) State {
	if strings.TrimSpace(label) == "" || slices.Contains(s.Categories, label) {
		return s
	}
	cats := make([]string, 0, len(s.Categories)+1)
	cats = append(cats, s.Categories...)
	s.Categories = append(cats, label)
	return s
}

func removeCategory(s State, label string) State {
	i := slices.Index(s.Categories, label)
	if i < 0 {
		return s
	}
	s.Categories = slices.Delete(slices.Clone(s.Categories), i, i+1)
	return s
}

// ---- persistent-update helpers ---------------------------------------------

// editActive applies fn to the active trip unless there is no active trip or
// it is locked. fn reports whether it changed anything; when it did not, the
// original State is returned so observers see no change.
func editActive(s State, fn func(domain.Trip) (domain.Trip, bool)) State {
	i := s.activeIndex()
	if i < 0 || IsLocked(s.Trips[i]) {
		return s
	}
	t, changed := fn(s.Trips[i])
	if !changed {
		return s
	}
	return withTrip(s, i, t)
}

// editCurrentDay applies fn to the day the active trip is viewing.
func editCurrentDay(s State, fn func(domain.Day) (domain.Day, bool)) State {
	return editActive(s, func(t domain.Trip) (domain.Trip, bool) {
		i := t.CurrentDayIndex
		if i < 0 || i >= len(t.Days) {
			return t, false
		}
		d, changed := fn(t.Days[i])
		if !changed {
			return t, false
		}
		return withDay(t, i, d), true
	})
}

func withTrip(s State, i int, t domain.Trip) State {
	trips := slices.Clone(s.Trips)
	trips[i] = t
	s.Trips = trips
	return s
}

func withDay(t domain.Trip, i int, d domain.Day) domain.Trip {
	days := slices.Clone(t.Days)
	days[i] = d
	t.Days = days
	return t
}

func withSpotAppended(d domain.Day, sp domain.Spot) domain.Day {
	spots := make([]domain.Spot, 0, len(d.Spots)+1)
	spots = append(spots, d.Spots...)
	d.Spots = append(spots, sp)
	return d
}

func spotIndex(spots []domain.Spot, id string) int {
	return slices.IndexFunc(spots, func(sp domain.Spot) bool { return sp.ID == id })
}

// move returns a copy of xs with the element at from moved to index to,
// shifting the elements in between. It reports false when either index is out
// of range or they are equal.
func move[T any](xs []T, from, to int) ([]T, bool) {
	if from < 0 || from >= len(xs) || to < 0 || to >= len(xs) || from == to {
		return xs, false
	}
	out := slices.Clone(xs)
	item := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, item)
	return out, true
}
