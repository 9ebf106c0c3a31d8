// Package itinerary owns the in-memory model of trips, days and spots.
//
// State is an immutable snapshot. Every operation computes a new State from
// the previous one, copying only the containers on the path from the root to
// the changed element; sibling trips, days and spots stay shared. A State that
// has been handed out is never modified afterwards, so readers holding an old
// snapshot never observe a mutation. Callers must treat the slices they read
// from a State as read-only.
//
// Operations never fail. Malformed input, unknown ids and edits to a locked
// trip leave the state unchanged.
package itinerary

import (
	"slices"
	"time"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/idgen"
)

const (
	// DefaultTripID is the id of the seed trip created on first run.
	DefaultTripID = "trip-default"

	// DefaultCategory is assigned to every new spot.
	DefaultCategory = "觀光景點"

	// PlaceholderSpotName names spots created by AddEmptySpot.
	PlaceholderSpotName = "新行程"

	// NewTripDestination is the destination label of trips made by CreateTrip.
	NewTripDestination = "台北"

	dateLayout = "2006-01-02"
)

// DefaultCategories is the category vocabulary of a fresh store.
var DefaultCategories = []string{
	"觀光景點", "美食餐廳", "購物行程", "咖啡廳",
	"神社/寺廟", "博物館/美術館", "公園/自然",
	"居酒屋/酒吧", "甜點/下午茶", "伴手禮",
	"藥妝店", "飯店/住宿", "交通/車站",
	"主題樂園", "便利商店", "休息點",
}

// State is the aggregate owned by a Store.
//
// Trips is never empty and ActiveTripID always names one of them. Categories
// is insertion-ordered without duplicates.
type State struct {
	Trips        []domain.Trip
	ActiveTripID string
	Categories   []string
}

// ActiveTrip returns the trip named by ActiveTripID.
func (s State) ActiveTrip() (domain.Trip, bool) {
	i := s.activeIndex()
	if i < 0 {
		return domain.Trip{}, false
	}
	return s.Trips[i], true
}

// CurrentDay returns the day the active trip is viewing.
func (s State) CurrentDay() (domain.Day, bool) {
	t, ok := s.ActiveTrip()
	if !ok || t.CurrentDayIndex < 0 || t.CurrentDayIndex >= len(t.Days) {
		return domain.Day{}, false
	}
	return t.Days[t.CurrentDayIndex], true
}

func (s State) activeIndex() int {
	return tripIndex(s.Trips, s.ActiveTripID)
}

func tripIndex(trips []domain.Trip, id string) int {
	return slices.IndexFunc(trips, func(t domain.Trip) bool { return t.ID == id })
}

// SeedTrip returns the trip a brand-new store starts with.
func SeedTrip(today time.Time) domain.Trip {
	return domain.Trip{
		ID:          DefaultTripID,
		Name:        "我的東京冒險",
		Destination: "日本東京",
		StartDate:   today.Format(dateLayout),
		Days: []domain.Day{
			{
				ID: "day-1",
				Spots: []domain.Spot{
					{
						ID:        "1",
						Name:      "淺草寺 (雷門)",
						Category:  "神社/寺廟",
						StartTime: "10:00",
						EndTime:   "12:00",
						Location:  domain.Location{Lat: 35.7147, Lng: 139.7967},
						Website:   "https://www.senso-ji.jp/",
						Rating:    Ptr(4.7),
					},
					{
						ID:        "2",
						Name:      "晴空塔敘敘苑",
						Category:  "美食餐廳",
						StartTime: "14:00",
						EndTime:   "16:00",
						Location:  domain.Location{Lat: 35.7100, Lng: 139.8107},
						Note:      "記得要訂位，靠窗位置風景最好！",
						Rating:    Ptr(4.5),
					},
				},
			},
		},
	}
}

// DefaultState returns the state of a store on first run: the seed trip,
// active, and the default category vocabulary.
func DefaultState(today time.Time) State {
	return State{
		Trips:        []domain.Trip{SeedTrip(today)},
		ActiveTripID: DefaultTripID,
		Categories:   slices.Clone(DefaultCategories),
	}
}

// Restore builds a State from externally supplied parts (a local snapshot or
// a remote load), repairing anything that would break the State invariants:
// an empty trip list falls back to the seed trip, a dangling ActiveTripID
// falls back to the first trip, trips without days get one empty day, view
// indexes are clamped and duplicate categories are dropped.
//
// The input slices are deep-copied.
func Restore(trips []domain.Trip, activeTripID string, categories []string, today time.Time, newID idgen.Generator) State {
	s := State{
		Trips:        normalizeTrips(trips, newID),
		ActiveTripID: activeTripID,
		Categories:   dedupe(categories),
	}
	if len(s.Trips) == 0 {
		s.Trips = []domain.Trip{SeedTrip(today)}
	}
	if s.activeIndex() < 0 {
		s.ActiveTripID = s.Trips[0].ID
	}
	if categories == nil {
		s.Categories = slices.Clone(DefaultCategories)
	}
	return s
}

func normalizeTrips(trips []domain.Trip, newID idgen.Generator) []domain.Trip {
	out := cloneTrips(trips)
	for i := range out {
		t := &out[i]
		if len(t.Days) == 0 {
			t.Days = []domain.Day{emptyDay(newID)}
		}
		t.CurrentDayIndex = clampIndex(t.CurrentDayIndex, len(t.Days))
	}
	return out
}

func emptyDay(newID idgen.Generator) domain.Day {
	return domain.Day{ID: newID(), Spots: []domain.Spot{}}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func dedupe(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

// cloneTrips deep-copies a trip collection so the result shares no memory
// with the input.
func cloneTrips(trips []domain.Trip) []domain.Trip {
	if trips == nil {
		return nil
	}
	out := make([]domain.Trip, len(trips))
	for i, t := range trips {
		days := make([]domain.Day, len(t.Days))
		for j, d := range t.Days {
			spots := make([]domain.Spot, len(d.Spots))
			for k, sp := range d.Spots {
				sp.Rating = clonePtr(sp.Rating)
				spots[k] = sp
			}
			if d.Spots == nil {
				spots = nil
			}
			d.Spots = spots
			d.CustomLat = clonePtr(d.CustomLat)
			d.CustomLng = clonePtr(d.CustomLng)
			days[j] = d
		}
		if t.Days == nil {
			days = nil
		}
		t.Days = days
		out[i] = t
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
