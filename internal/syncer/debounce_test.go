package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/itinerary"
)

// countingGateway counts saves.
type countingGateway struct{ saves int }

func (g *countingGateway) Load(context.Context) ([]domain.Trip, error) { return nil, nil }
func (g *countingGateway) Save(context.Context, []domain.Trip) error {
	g.saves++
	return nil
}

func TestFire_IgnoresTimerFromRestartedWindow(t *testing.T) {
	store := itinerary.NewStore(itinerary.DefaultState(time.Now()))
	c := New(store, &countingGateway{}, Options{Debounce: time.Hour})
	t.Cleanup(c.Close)

	c.schedule()
	c.mu.Lock()
	expired := c.debounceGen
	c.mu.Unlock()

	// A change restarts the window before the expired callback gets the lock.
	c.schedule()
	c.fire(expired)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.True(t, c.pending, "save must wait for the restarted window")
	assert.False(t, c.saving)
}

func TestFire_RunsCurrentGeneration(t *testing.T) {
	store := itinerary.NewStore(itinerary.DefaultState(time.Now()))
	gw := &countingGateway{}
	c := New(store, gw, Options{Debounce: time.Hour})

	c.schedule()
	c.mu.Lock()
	current := c.debounceGen
	c.mu.Unlock()

	c.fire(current)
	c.Close()

	assert.Equal(t, 1, gw.saves)
}

func TestFire_IgnoresCancelledWindow(t *testing.T) {
	store := itinerary.NewStore(itinerary.DefaultState(time.Now()))
	c := New(store, &countingGateway{}, Options{Debounce: time.Hour})
	t.Cleanup(c.Close)

	c.schedule()
	c.mu.Lock()
	gen := c.debounceGen
	c.cancelDebounceLocked()
	c.pending = true
	c.mu.Unlock()

	c.fire(gen)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.False(t, c.saving)
}

func TestFire_WaitsForLoadOnStart(t *testing.T) {
	store := itinerary.NewStore(itinerary.DefaultState(time.Now()))
	gw := &countingGateway{}
	c := New(store, gw, Options{Debounce: time.Hour})

	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	c.schedule()
	c.mu.Lock()
	gen := c.debounceGen
	c.mu.Unlock()

	c.fire(gen)

	c.mu.Lock()
	assert.True(t, c.pending)
	assert.True(t, c.fireOwed)
	assert.False(t, c.saving)
	c.mu.Unlock()

	c.finishLoad()
	c.Close()

	assert.Equal(t, 1, gw.saves, "owed save runs once the load is over")
}
