package itinerary

import "github.com/pkordes/itinerary-planner/internal/domain"

// DefaultMapCenter is used by MapCenter when no spot has been placed (Tokyo).
var DefaultMapCenter = domain.Location{Lat: 35.6762, Lng: 139.6503}

// PlacedSpots returns the spots that have a real location, in order.
// Spots still at the (0,0) sentinel are left out; route lines and map bounds
// must only be built from the result.
func PlacedSpots(spots []domain.Spot) []domain.Spot {
	out := make([]domain.Spot, 0, len(spots))
	for _, sp := range spots {
		if sp.Location.IsPlaced() {
			out = append(out, sp)
		}
	}
	return out
}

// MapCenter returns the location of the first placed spot, or fallback when
// none is placed.
func MapCenter(spots []domain.Spot, fallback domain.Location) domain.Location {
	for _, sp := range spots {
		if sp.Location.IsPlaced() {
			return sp.Location
		}
	}
	return fallback
}

// DayDate returns the calendar date of the day at offset from the trip start
// date, formatted "2006-01-02". It reports false when startDate is malformed.
func DayDate(startDate string, offset int) (string, bool) {
	start, ok := parseDate(startDate)
	if !ok {
		return "", false
	}
	return start.AddDate(0, 0, offset).Format(dateLayout), true
}

// EndDate returns the date of the last day of t.
func EndDate(t domain.Trip) (string, bool) {
	return DayDate(t.StartDate, len(t.Days)-1)
}

// ExportRows flattens trips into one row per spot. Days without spots yield a
// single row with empty spot fields. Unplaced spots have a nil Location.
func ExportRows(trips []domain.Trip) []domain.ExportRow {
	rows := []domain.ExportRow{}
	for _, t := range trips {
		for i, d := range t.Days {
			base := domain.ExportRow{
				TripID:        t.ID,
				TripName:      t.Name,
				TripStartDate: t.StartDate,
				DayNumber:     i + 1,
			}
			if date, ok := DayDate(t.StartDate, i); ok {
				base.DayDate = date
			}
			if len(d.Spots) == 0 {
				rows = append(rows, base)
				continue
			}
			for _, sp := range d.Spots {
				row := base
				row.SpotID = sp.ID
				row.SpotName = sp.Name
				row.Category = sp.Category
				row.StartTime = sp.StartTime
				row.EndTime = sp.EndTime
				row.Address = sp.Address
				row.Note = sp.Note
				if sp.Location.IsPlaced() {
					loc := sp.Location
					row.Location = &loc
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

