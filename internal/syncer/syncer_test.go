package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/idgen"
	"github.com/pkordes/itinerary-planner/internal/itinerary"
	"github.com/pkordes/itinerary-planner/internal/syncer"
)

// mockGateway is a hand-written test double for syncer.Gateway.
// Set only the function fields a test needs; saves are recorded either way.
type mockGateway struct {
	load func(ctx context.Context) ([]domain.Trip, error)
	save func(ctx context.Context, trips []domain.Trip) error

	mu       sync.Mutex
	saved    [][]domain.Trip
	inFlight int
	maxInFl  int
}

func (m *mockGateway) Load(ctx context.Context) ([]domain.Trip, error) {
	if m.load == nil {
		return nil, nil
	}
	return m.load(ctx)
}

func (m *mockGateway) Save(ctx context.Context, trips []domain.Trip) error {
	m.mu.Lock()
	m.saved = append(m.saved, trips)
	m.inFlight++
	m.maxInFl = max(m.maxInFl, m.inFlight)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()
	if m.save == nil {
		return nil
	}
	return m.save(ctx, trips)
}

func (m *mockGateway) saves() [][]domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]domain.Trip, len(m.saved))
	copy(out, m.saved)
	return out
}

// compile-time checks.
var (
	_ syncer.Gateway = (*mockGateway)(nil)
	_ syncer.Store   = (*itinerary.Store)(nil)
)

// ---- helpers ---------------------------------------------------------------

const (
	debounce = 30 * time.Millisecond
	waitFor  = 2 * time.Second
	tick     = 5 * time.Millisecond
)

func newStore() *itinerary.Store {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return itinerary.NewStore(
		itinerary.DefaultState(now),
		itinerary.WithIDGenerator(idgen.Sequence("id")),
		itinerary.WithClock(func() time.Time { return now }),
	)
}

// statusRecorder collects every status the controller reports.
type statusRecorder struct {
	mu   sync.Mutex
	seen []domain.SyncStatus
}

func (r *statusRecorder) record(s domain.SyncStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, s)
}

func (r *statusRecorder) all() []domain.SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SyncStatus(nil), r.seen...)
}

func newController(t *testing.T, store syncer.Store, gw syncer.Gateway, opts syncer.Options) *syncer.Controller {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = debounce
	}
	c := syncer.New(store, gw, opts)
	c.Start(context.Background())
	t.Cleanup(c.Close)
	return c
}

// ---- debounce --------------------------------------------------------------

func TestController_DebounceCoalescesBurst(t *testing.T) {
	store := newStore()
	gw := &mockGateway{}
	c := newController(t, store, gw, syncer.Options{})

	for i := 0; i < 5; i++ {
		store.AddEmptySpot()
	}

	require.Eventually(t, func() bool { return len(gw.saves()) == 1 }, waitFor, tick)
	time.Sleep(3 * debounce)

	saves := gw.saves()
	require.Len(t, saves, 1, "a burst of edits must produce exactly one save")
	assert.Equal(t, store.Trips(), saves[0])
	assert.Equal(t, domain.SyncSaved, c.Status())
	_, ok := c.LastSaved()
	assert.True(t, ok)
}

func TestController_IgnoresNonTripChanges(t *testing.T) {
	store := newStore()
	gw := &mockGateway{}
	newController(t, store, gw, syncer.Options{})

	store.AddCategory("溫泉")
	store.CreateTrip()
	store.SwitchTrip(itinerary.DefaultTripID)

	require.Eventually(t, func() bool { return len(gw.saves()) == 1 }, waitFor, tick)
	time.Sleep(3 * debounce)
	assert.Len(t, gw.saves(), 1)
}

func TestController_SavedFallsBackToIdle(t *testing.T) {
	store := newStore()
	rec := &statusRecorder{}
	c := newController(t, store, &mockGateway{}, syncer.Options{
		SavedDisplay: 20 * time.Millisecond,
		OnStatus:     rec.record,
	})

	store.AddDay()

	require.Eventually(t, func() bool { return c.Status() == domain.SyncIdle && len(rec.all()) == 3 }, waitFor, tick)
	assert.Equal(t, []domain.SyncStatus{domain.SyncSaving, domain.SyncSaved, domain.SyncIdle}, rec.all())
}

// ---- serialization ---------------------------------------------------------

func TestController_ChangeDuringSaveTriggersOneFollowUp(t *testing.T) {
	store := newStore()
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	gw := &mockGateway{
		save: func(ctx context.Context, _ []domain.Trip) error {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	}
	c := newController(t, store, gw, syncer.Options{})

	store.AddDay()
	<-started
	require.Equal(t, domain.SyncSaving, c.Status())

	// Two separate debounce windows elapse while the first save is blocked.
	store.AddEmptySpot()
	time.Sleep(3 * debounce)
	store.AddEmptySpot()
	time.Sleep(3 * debounce)
	c.Save()
	require.Len(t, gw.saves(), 1, "no save may start while one is in flight")

	close(release)
	require.Eventually(t, func() bool { return len(gw.saves()) == 2 && c.Status() == domain.SyncSaved }, waitFor, tick)
	time.Sleep(3 * debounce)

	saves := gw.saves()
	require.Len(t, saves, 2, "exactly one follow-up save")
	assert.Equal(t, store.Trips(), saves[1], "follow-up carries the latest state")
	gw.mu.Lock()
	assert.Equal(t, 1, gw.maxInFl)
	gw.mu.Unlock()
}

// ---- failures --------------------------------------------------------------

func TestController_SaveFailureSetsError(t *testing.T) {
	store := newStore()
	var fail sync.Mutex
	failing := true
	gw := &mockGateway{
		save: func(context.Context, []domain.Trip) error {
			fail.Lock()
			defer fail.Unlock()
			if failing {
				return errors.New("boom")
			}
			return nil
		},
	}
	c := newController(t, store, gw, syncer.Options{})

	store.AddDay()
	require.Eventually(t, func() bool { return c.Status() == domain.SyncError }, waitFor, tick)
	time.Sleep(3 * debounce)
	assert.Len(t, gw.saves(), 1, "no automatic retry")
	_, ok := c.LastSaved()
	assert.False(t, ok)

	fail.Lock()
	failing = false
	fail.Unlock()
	store.AddDay()
	require.Eventually(t, func() bool { return c.Status() == domain.SyncSaved }, waitFor, tick)
}

// ---- manual save & flush ---------------------------------------------------

func TestController_ManualSaveBypassesPersistedCheck(t *testing.T) {
	store := newStore()
	gw := &mockGateway{}
	c := newController(t, store, gw, syncer.Options{})

	c.Save()
	require.Eventually(t, func() bool { return len(gw.saves()) == 1 }, waitFor, tick)

	c.Save()
	require.Eventually(t, func() bool { return len(gw.saves()) == 2 }, waitFor, tick)
}

func TestController_FlushRunsPendingSave(t *testing.T) {
	store := newStore()
	gw := &mockGateway{}
	c := newController(t, store, gw, syncer.Options{Debounce: time.Hour})

	store.AddDay()
	err := c.Flush(context.Background())

	require.NoError(t, err)
	require.Len(t, gw.saves(), 1)
	assert.Equal(t, store.Trips(), gw.saves()[0])
	assert.Equal(t, domain.SyncSaved, c.Status())
}

func TestController_FlushReportsFailure(t *testing.T) {
	store := newStore()
	gw := &mockGateway{save: func(context.Context, []domain.Trip) error { return errors.New("offline") }}
	c := newController(t, store, gw, syncer.Options{Debounce: time.Hour})

	store.AddDay()
	err := c.Flush(context.Background())

	require.EqualError(t, err, "offline")
	assert.Equal(t, domain.SyncError, c.Status())
}

func TestController_FlushWithNothingPending(t *testing.T) {
	c := newController(t, newStore(), &mockGateway{}, syncer.Options{})

	assert.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, domain.SyncIdle, c.Status())
}

func TestController_CloseDropsScheduledSave(t *testing.T) {
	store := newStore()
	gw := &mockGateway{}
	c := syncer.New(store, gw, syncer.Options{Debounce: debounce})
	c.Start(context.Background())

	store.AddDay()
	c.Close()
	time.Sleep(3 * debounce)

	assert.Empty(t, gw.saves())
	assert.ErrorIs(t, c.Flush(context.Background()), syncer.ErrClosed)
}

// ---- load on start ---------------------------------------------------------

func remoteTrips() []domain.Trip {
	return []domain.Trip{{
		ID:        "remote-1",
		Name:      "京都",
		StartDate: "2025-10-01",
		Days:      []domain.Day{{ID: "rd-1", Spots: []domain.Spot{{ID: "rs-1", Name: "伏見稻荷"}}}},
	}}
}

func TestController_LoadOnStartImportsRemote(t *testing.T) {
	store := newStore()
	gw := &mockGateway{load: func(context.Context) ([]domain.Trip, error) { return remoteTrips(), nil }}
	c := newController(t, store, gw, syncer.Options{})

	c.LoadOnStart(context.Background())

	assert.Equal(t, remoteTrips(), store.Trips())
	trip, _ := store.ActiveTrip()
	assert.Equal(t, "remote-1", trip.ID)
	assert.Equal(t, domain.SyncSaved, c.Status())

	time.Sleep(3 * debounce)
	assert.Empty(t, gw.saves(), "the imported state must not be echoed back")

	store.AddDay()
	require.Eventually(t, func() bool { return len(gw.saves()) == 1 }, waitFor, tick)
}

func TestController_LoadOnStartKeepsLocalState(t *testing.T) {
	cases := []struct {
		name string
		load func(context.Context) ([]domain.Trip, error)
	}{
		{"empty remote", func(context.Context) ([]domain.Trip, error) { return []domain.Trip{}, nil }},
		{"load failure", func(context.Context) ([]domain.Trip, error) { return nil, errors.New("503") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore()
			before := store.Trips()
			gw := &mockGateway{load: tc.load}
			c := newController(t, store, gw, syncer.Options{})

			c.LoadOnStart(context.Background())

			assert.Equal(t, before, store.Trips())
			assert.Equal(t, domain.SyncIdle, c.Status())
			assert.Equal(t, uint64(0), store.Revision())
		})
	}
}

func TestController_SaveHonoursTimeout(t *testing.T) {
	store := newStore()
	gw := &mockGateway{save: func(ctx context.Context, _ []domain.Trip) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	c := newController(t, store, gw, syncer.Options{Timeout: 20 * time.Millisecond})

	c.Save()
	err := c.Flush(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.SyncError, c.Status())
}
