package itinerary

import "github.com/pkordes/itinerary-planner/internal/domain"

// IsLocked reports whether edits to t must be rejected.
//
// A lock marks a finished or shared itinerary as read-only. It does not
// coordinate writers: a locked trip can still be viewed, navigated, unlocked
// and deleted from the library.
func IsLocked(t domain.Trip) bool {
	return t.IsLocked
}
