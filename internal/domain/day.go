package domain

// Day is one calendar day of a Trip. Spots are kept in visiting order, which
// is the order they were added or dragged into; it is never derived from
// their times.
//
// CustomLocation, CustomLat and CustomLng override the auto-detected region
// used for weather and region display.
type Day struct {
	ID             string   `json:"id" validate:"required"`
	Spots          []Spot   `json:"spots" validate:"dive"`
	CustomLocation string   `json:"customLocation,omitempty"`
	CustomLat      *float64 `json:"customLat,omitempty"`
	CustomLng      *float64 `json:"customLng,omitempty"`
}

// HasCustomLocation reports whether the day carries a location override.
func (d Day) HasCustomLocation() bool {
	return d.CustomLocation != "" || d.CustomLat != nil || d.CustomLng != nil
}
