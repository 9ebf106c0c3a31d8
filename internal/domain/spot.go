package domain

// Location is a geographic point. The zero value (0,0) means "not placed yet".
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsPlaced reports whether the location is a real point rather than the
// (0,0) sentinel. Any zero coordinate counts as unplaced.
func (l Location) IsPlaced() bool {
	return l.Lat != 0 && l.Lng != 0
}

// Spot is a single stop on a Day. ID is assigned by the store and never changes.
// StartTime and EndTime are "HH:MM" strings or empty.
type Spot struct {
	ID        string   `json:"id" validate:"required"`
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Website   string   `json:"website,omitempty"`
	Note      string   `json:"note,omitempty"`
	StartTime string   `json:"startTime,omitempty"`
	EndTime   string   `json:"endTime,omitempty"`
	Location  Location `json:"location"`
	Address   string   `json:"address,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
}
