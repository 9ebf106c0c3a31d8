package itinerary

import "github.com/pkordes/itinerary-planner/internal/domain"

// Ptr returns a pointer to v. It keeps patch literals short:
//
//	store.UpdateSpot(id, itinerary.SpotPatch{Note: itinerary.Ptr("book ahead")})
func Ptr[T any](v T) *T {
	return &v
}

// TripInfoPatch holds the trip header fields to merge into the active trip.
// Nil fields are left as they are.
type TripInfoPatch struct {
	Name        *string
	Destination *string
}

func (p TripInfoPatch) apply(t domain.Trip) domain.Trip {
	setIf(&t.Name, p.Name)
	setIf(&t.Destination, p.Destination)
	return t
}

// FlightPatch holds flight fields to merge into one of the trip's flights.
type FlightPatch struct {
	FlightNo   *string
	DepTime    *string
	ArrTime    *string
	DepAirport *string
	ArrAirport *string
}

func (p FlightPatch) apply(f domain.FlightInfo) domain.FlightInfo {
	setIf(&f.FlightNo, p.FlightNo)
	setIf(&f.DepTime, p.DepTime)
	setIf(&f.ArrTime, p.ArrTime)
	setIf(&f.DepAirport, p.DepAirport)
	setIf(&f.ArrAirport, p.ArrAirport)
	return f
}

// DayInfoPatch holds the custom location override of a day.
// Clear drops the existing override before the other fields are applied.
type DayInfoPatch struct {
	CustomLocation *string
	CustomLat      *float64
	CustomLng      *float64
	Clear          bool
}

func (p DayInfoPatch) apply(d domain.Day) domain.Day {
	if p.Clear {
		d.CustomLocation = ""
		d.CustomLat = nil
		d.CustomLng = nil
	}
	setIf(&d.CustomLocation, p.CustomLocation)
	if p.CustomLat != nil {
		d.CustomLat = clonePtr(p.CustomLat)
	}
	if p.CustomLng != nil {
		d.CustomLng = clonePtr(p.CustomLng)
	}
	return d
}

// SpotPatch holds spot fields to merge into an existing spot.
// The id is not patchable.
type SpotPatch struct {
	Name      *string
	Category  *string
	Website   *string
	Note      *string
	StartTime *string
	EndTime   *string
	Location  *domain.Location
	Address   *string
	Rating    *float64
}

func (p SpotPatch) apply(s domain.Spot) domain.Spot {
	setIf(&s.Name, p.Name)
	setIf(&s.Category, p.Category)
	setIf(&s.Website, p.Website)
	setIf(&s.Note, p.Note)
	setIf(&s.StartTime, p.StartTime)
	setIf(&s.EndTime, p.EndTime)
	setIf(&s.Location, p.Location)
	setIf(&s.Address, p.Address)
	if p.Rating != nil {
		s.Rating = clonePtr(p.Rating)
	}
	return s
}

// SpotInput describes a spot picked on the map or from search results.
// The store assigns the id and the default category; times start empty.
type SpotInput struct {
	Name     string
	Website  string
	Note     string
	Location domain.Location
	Address  string
	Rating   *float64
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
