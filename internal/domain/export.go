package domain

// ExportRow is a single row in the flat itinerary export.
// It is a denormalized view: one row per spot, with trip and day fields
// repeated for every spot on that day. Days with no spots yield one row with
// zero values for all spot fields.
type ExportRow struct {
	// Trip fields, repeated for every spot on the trip.
	TripID        string
	TripName      string
	TripStartDate string // "2006-01-02", empty when the trip has no start date

	// Day fields. DayNumber is 1-based; DayDate is empty when the trip start
	// date is missing or malformed.
	DayNumber int
	DayDate   string

	// Spot fields. Zero values when the day has no spots.
	SpotID    string
	SpotName  string
	Category  string
	StartTime string
	EndTime   string
	Location  *Location // nil for days without spots and for unplaced spots
	Address   string
	Note      string
}
