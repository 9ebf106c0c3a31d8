package domain

import "time"

// Itinerary is the stored trip collection of one profile. The server keeps it
// as a single document and replaces it whole on every save.
type Itinerary struct {
	ProfileID string
	Trips     []Trip
	UpdatedAt time.Time
}
