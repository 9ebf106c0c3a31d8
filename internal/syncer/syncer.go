// Package syncer keeps a local itinerary store and a remote persistence
// endpoint in step.
//
// A Controller watches the store for changes to the trip collection, waits
// for a quiet period (the debounce window) and then sends the whole
// collection to the Gateway. At most one save is in flight at any time; edits
// made while a save is running are picked up by exactly one follow-up save.
// The outcome is exposed as a domain.SyncStatus.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/itinerary"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultDebounce     = 1500 * time.Millisecond
	DefaultSavedDisplay = 3 * time.Second
	DefaultTimeout      = 10 * time.Second
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("syncer: controller closed")

// Gateway is the remote persistence endpoint.
type Gateway interface {
	Load(ctx context.Context) ([]domain.Trip, error)
	Save(ctx context.Context, trips []domain.Trip) error
}

// Store is the part of itinerary.Store the controller needs.
type Store interface {
	Trips() []domain.Trip
	Revision() uint64
	ImportData(trips []domain.Trip)
	Subscribe(fn func(itinerary.Change)) (cancel func())
}

// Options tunes a Controller. Zero fields take the package defaults.
type Options struct {
	// Debounce is the quiet period after the last change before a save.
	Debounce time.Duration

	// SavedDisplay is how long the saved status is shown before it falls
	// back to idle.
	SavedDisplay time.Duration

	// Timeout bounds each Load and Save call.
	Timeout time.Duration

	// OnStatus, if set, is called on every status change. It runs with the
	// controller lock held and must not call back into the Controller.
	OnStatus func(domain.SyncStatus)

	Logger *slog.Logger

	// Now stamps successful saves. Defaults to time.Now.
	Now func() time.Time
}

// Controller is the synchronization controller of one session.
type Controller struct {
	store Store
	gw    Gateway
	opts  Options
	log   *slog.Logger

	mu        sync.Mutex
	base      context.Context
	status    domain.SyncStatus
	lastSaved time.Time
	lastErr   error
	closed    bool
	unsub     func()

	debounce    *time.Timer
	debounceGen uint64 // callbacks of older timers are ignored
	pending     bool   // a debounced save is scheduled
	loading     bool   // LoadOnStart is importing the remote trips
	fireOwed    bool   // the debounce expired while loading

	idleTimer *time.Timer

	saving    bool
	dirty     bool // a follow-up save was requested during the current one
	dirtyHard bool // the follow-up was a manual save
	seq       uint64
	waiters   []chan struct{}

	persisted    bool
	persistedRev uint64

	wg sync.WaitGroup
}

// New returns an idle Controller. Call Start to begin watching the store.
func New(store Store, gw Gateway, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SavedDisplay <= 0 {
		opts.SavedDisplay = DefaultSavedDisplay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		store:  store,
		gw:     gw,
		opts:   opts,
		log:    log.With("component", "syncer"),
		base:   context.Background(),
		status: domain.SyncIdle,
	}
}

// Start subscribes to the store. Saves triggered by later changes run with
// a context derived from ctx.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.unsub != nil {
		return
	}
	c.base = ctx
	c.unsub = c.store.Subscribe(func(ch itinerary.Change) {
		if ch.TripsChanged {
			c.schedule()
		}
	})
}

// LoadOnStart fetches the remote collection once. A non-empty result
// replaces the local trips and is recorded as already persisted. An empty
// result or a failure keeps the local state; failures are logged and never
// surfaced.
func (c *Controller) LoadOnStart(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	defer c.finishLoad()

	trips, err := c.gw.Load(ctx)
	if err != nil {
		c.log.Warn("remote load failed, keeping local state", "error", err)
		c.setStatus(domain.SyncIdle)
		return
	}
	if len(trips) == 0 {
		c.log.Info("remote has no trips, keeping local state")
		c.setStatus(domain.SyncIdle)
		return
	}

	c.store.ImportData(trips)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.persisted = true
	c.persistedRev = c.store.Revision()
	c.lastSaved = c.opts.Now()
	c.lastErr = nil
	c.setStatusLocked(domain.SyncSaved)
	c.armIdleLocked()
	c.log.Info("loaded remote trips", "trips", len(trips))
}

// finishLoad runs a debounced save that expired during LoadOnStart. It is
// skipped when the store still holds exactly the imported trips.
func (c *Controller) finishLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if !c.fireOwed {
		return
	}
	c.fireOwed = false
	if c.pending && !c.closed {
		c.pending = false
		c.requestLocked(false)
	}
}

// Save requests an immediate save of the current trips, even when they were
// already persisted.
func (c *Controller) Save() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelDebounceLocked()
	c.requestLocked(true)
}

// Flush runs a scheduled debounced save now and waits until no save is in
// flight or ctx is done. It returns the error of the last save, if it failed.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.pending {
		c.cancelDebounceLocked()
		c.requestLocked(false)
	}
	if !c.saving {
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	c.waiters = append(c.waiters, done)
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close stops watching the store, drops any scheduled save and waits for an
// in-flight save to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancelDebounceLocked()
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	unsub := c.unsub
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	c.wg.Wait()
}

// Status returns the current sync status.
func (c *Controller) Status() domain.SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastSaved returns the time of the last successful save or load, and false
// when there has been none.
func (c *Controller) LastSaved() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved, !c.lastSaved.IsZero()
}

// ---- internals -------------------------------------------------------------

// schedule (re)starts the debounce window.
func (c *Controller) schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending = true
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounceGen++
	gen := c.debounceGen
	c.debounce = time.AfterFunc(c.opts.Debounce, func() { c.fire(gen) })
}

// fire runs the debounced save of generation gen. A timer that expired while
// schedule restarted the window finds a newer generation and does nothing.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.debounceGen || !c.pending || c.closed {
		return
	}
	if c.loading {
		c.fireOwed = true
		return
	}
	c.pending = false
	c.requestLocked(false)
}

func (c *Controller) cancelDebounceLocked() {
	c.pending = false
	c.debounceGen++
	if c.debounce != nil {
		c.debounce.Stop()
	}
}

// requestLocked starts a save, or marks one as owed when a save is running.
// force skips the already-persisted check.
func (c *Controller) requestLocked(force bool) {
	if c.closed {
		return
	}
	if c.saving {
		c.dirty = true
		c.dirtyHard = c.dirtyHard || force
		return
	}
	c.startLocked(force)
}

func (c *Controller) startLocked(force bool) {
	// Read the revision before the trips so the trips are never older than
	// the revision recorded for them.
	rev := c.store.Revision()
	if !force && c.persisted && rev == c.persistedRev {
		c.log.Debug("trips already persisted, skipping save", "revision", rev)
		c.releaseWaitersLocked()
		return
	}
	trips := c.store.Trips()

	c.seq++
	seq := c.seq
	c.saving = true
	c.setStatusLocked(domain.SyncSaving)

	c.wg.Add(1)
	go c.run(seq, rev, trips)
}

func (c *Controller) run(seq, rev uint64, trips []domain.Trip) {
	defer c.wg.Done()

	c.mu.Lock()
	base := c.base
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, c.opts.Timeout)
	err := c.gw.Save(ctx, trips)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false
	switch {
	case seq != c.seq:
		c.log.Debug("discarding stale save result", "seq", seq, "latest", c.seq)
	case err != nil:
		c.lastErr = err
		c.log.Error("save failed", "error", err, "trips", len(trips))
		c.setStatusLocked(domain.SyncError)
	default:
		c.lastErr = nil
		c.persisted = true
		c.persistedRev = rev
		c.lastSaved = c.opts.Now()
		c.log.Debug("saved trips", "trips", len(trips), "revision", rev)
		c.setStatusLocked(domain.SyncSaved)
		c.armIdleLocked()
	}

	if c.dirty && !c.closed {
		force := c.dirtyHard
		c.dirty, c.dirtyHard = false, false
		c.startLocked(force)
		return
	}
	c.dirty, c.dirtyHard = false, false
	c.releaseWaitersLocked()
}

// armIdleLocked moves a saved status back to idle after SavedDisplay, unless
// another save starts first.
func (c *Controller) armIdleLocked() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	seq := c.seq
	c.idleTimer = time.AfterFunc(c.opts.SavedDisplay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.status == domain.SyncSaved && c.seq == seq && !c.closed {
			c.setStatusLocked(domain.SyncIdle)
		}
	})
}

func (c *Controller) releaseWaitersLocked() {
	if c.saving {
		return
	}
	for _, w := range c.waiters {
		close(w)
	}
	c.waiters = nil
}

func (c *Controller) setStatus(s domain.SyncStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStatusLocked(s)
}

func (c *Controller) setStatusLocked(s domain.SyncStatus) {
	if c.status == s {
		return
	}
	c.status = s
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(s)
	}
}
