// Package localstore persists a session's itinerary state on the local
// machine between runs.
//
// The state is written as one JSON document
//
//	{"state":{"trips":[...],"activeTripId":"...","savedCategories":[...]},"version":0}
//
// under a single well-known key, the same layout the browser client keeps in
// localStorage, so documents can be copied between the two.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/itinerary"
)

// Key is the storage key of the snapshot document.
const Key = "travel-planner-storage-v31"

// Version is written into every document.
const Version = 0

type document struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

type persistedState struct {
	Trips           []domain.Trip `json:"trips"`
	ActiveTripID    string        `json:"activeTripId"`
	SavedCategories []string      `json:"savedCategories"`
}

// Snapshots reads and writes the state document.
type Snapshots struct {
	storage Storage
	log     *slog.Logger
}

// New returns Snapshots backed by storage. A nil logger uses slog.Default.
func New(storage Storage, log *slog.Logger) *Snapshots {
	if log == nil {
		log = slog.Default()
	}
	return &Snapshots{storage: storage, log: log.With("component", "localstore")}
}

// Load returns the stored state, or false when there is none. The returned
// State is not normalized; pass it to itinerary.NewStore or itinerary.Restore.
//
// A document that cannot be decoded is logged, removed and reported as
// absent.
func (s *Snapshots) Load(ctx context.Context) (itinerary.State, bool, error) {
	b, err := s.storage.Get(ctx, Key)
	if errors.Is(err, ErrNotExist) {
		return itinerary.State{}, false, nil
	}
	if err != nil {
		return itinerary.State{}, false, fmt.Errorf("localstore.Snapshots.Load: %w", err)
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		s.log.Warn("discarding unreadable local snapshot", "key", Key, "error", err)
		if derr := s.storage.Delete(ctx, Key); derr != nil {
			s.log.Warn("could not remove unreadable local snapshot", "key", Key, "error", derr)
		}
		return itinerary.State{}, false, nil
	}

	return itinerary.State{
		Trips:        doc.State.Trips,
		ActiveTripID: doc.State.ActiveTripID,
		Categories:   doc.State.SavedCategories,
	}, true, nil
}

// Save writes st, replacing the previous document.
func (s *Snapshots) Save(ctx context.Context, st itinerary.State) error {
	doc := document{
		State: persistedState{
			Trips:           st.Trips,
			ActiveTripID:    st.ActiveTripID,
			SavedCategories: st.Categories,
		},
		Version: Version,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("localstore.Snapshots.Save: %w", err)
	}
	if err := s.storage.Set(ctx, Key, b); err != nil {
		return fmt.Errorf("localstore.Snapshots.Save: %w", err)
	}
	return nil
}

// Clear removes the stored document.
func (s *Snapshots) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, Key); err != nil {
		return fmt.Errorf("localstore.Snapshots.Clear: %w", err)
	}
	return nil
}
