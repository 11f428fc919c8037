package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
)

// saveTimeout bounds a single background write.
const saveTimeout = 5 * time.Second

// SyncState is the coordinator's write-back state.
type SyncState int

const (
	// SyncIdle: no pending write.
	SyncIdle SyncState = iota
	// SyncPendingWrite: a mutation occurred and the delay window is running.
	SyncPendingWrite
	// SyncCommitting: the window elapsed and a write is in flight.
	SyncCommitting
)

// Timer is the cancellable handle the coordinator holds while a delay window
// runs. time.Timer satisfies it; tests substitute a manual one.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules fn after d and returns its handle. Injectable so
// debounce behavior is unit-testable without wall-clock delays.
type TimerFactory func(d time.Duration, fn func()) Timer

// AfterFuncTimer is the production TimerFactory.
func AfterFuncTimer(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Coordinator debounces profile mutations into persistence writes for a
// single session. Every mutation restarts the delay window; when the window
// elapses the current snapshot is written, so rapid interactions coalesce
// into one write carrying only the final state. The session is fixed at
// construction: a pending write can never land under another identity.
type Coordinator struct {
	session  Session
	store    *Store
	gateway  *Gateway
	window   time.Duration
	newTimer TimerFactory
	onCommit func(Session, models.Profile)

	mu        sync.Mutex
	timer     Timer
	saving    bool
	closed    bool
	savesDone sync.WaitGroup

	// saveMu serializes commits: at most one outstanding write per session.
	saveMu sync.Mutex
}

// NewCoordinator hydrates the store from the gateway (exactly one load per
// session establishment, full replacement) and returns a coordinator in the
// idle state.
func NewCoordinator(ctx context.Context, sess Session, gw *Gateway, window time.Duration, newTimer TimerFactory, onCommit func(Session, models.Profile)) *Coordinator {
	if newTimer == nil {
		newTimer = AfterFuncTimer
	}
	return &Coordinator{
		session:  sess,
		store:    NewStore(gw.Load(ctx, sess)),
		gateway:  gw,
		window:   window,
		newTimer: newTimer,
		onCommit: onCommit,
	}
}

// Session returns the identity this coordinator writes under.
func (c *Coordinator) Session() Session { return c.session }

// Snapshot returns the current in-memory profile.
func (c *Coordinator) Snapshot() models.Profile { return c.store.Snapshot() }

// State reports the current write-back state.
func (c *Coordinator) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.saving:
		return SyncCommitting
	case c.timer != nil:
		return SyncPendingWrite
	default:
		return SyncIdle
	}
}

// Mutate applies a pure mutation to the profile and (re)starts the delay
// window. Returns the post-mutation snapshot so callers can respond with it
// immediately, regardless of persistence state.
func (c *Coordinator) Mutate(mut func(models.Profile) models.Profile) models.Profile {
	snap := c.store.Apply(mut)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return snap
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.newTimer(c.window, c.fire)
	return snap
}

// fire runs when the delay window elapses: Committing until the save
// resolves, then back to Idle. Save failures are swallowed downstream; there
// is no retry because the next mutation restarts the cycle.
func (c *Coordinator) fire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.saving = true
	c.savesDone.Add(1)
	c.mu.Unlock()

	c.commit()

	c.mu.Lock()
	c.saving = false
	c.mu.Unlock()
	c.savesDone.Done()
}

// commit writes the current snapshot under saveMu. A flush racing a
// timer-fired save queues behind it, and the snapshot is read only after the
// lock is held, so the later write always carries the newer state.
func (c *Coordinator) commit() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	snap := c.store.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	c.gateway.Save(ctx, c.session, snap)
	if c.onCommit != nil {
		c.onCommit(c.session, snap)
	}
}

// Flush cancels any pending window and writes the current snapshot now.
// Used on sign-out, session switch, and shutdown so the last few seconds of
// edits are not dropped.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.commit()
}

// Close cancels the pending window, optionally flushing first, and waits for
// any in-flight save to resolve. After Close the coordinator ignores
// mutations.
func (c *Coordinator) Close(flush bool) {
	if flush {
		c.Flush()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.savesDone.Wait()
}

// Engine owns one coordinator per active session and reacts to session
// changes from the resolver: the outgoing session is flushed and closed
// before the incoming one is attached.
type Engine struct {
	gateway  *Gateway
	window   time.Duration
	newTimer TimerFactory
	onCommit func(Session, models.Profile)

	mu     sync.Mutex
	coords map[string]*Coordinator
}

func NewEngine(gw *Gateway, window time.Duration, newTimer TimerFactory, onCommit func(Session, models.Profile)) *Engine {
	return &Engine{
		gateway:  gw,
		window:   window,
		newTimer: newTimer,
		onCommit: onCommit,
		coords:   make(map[string]*Coordinator),
	}
}

// Attach returns the coordinator for sess, hydrating one on first use.
func (e *Engine) Attach(ctx context.Context, sess Session) *Coordinator {
	if sess.IsZero() {
		return nil
	}

	e.mu.Lock()
	if c, ok := e.coords[sess.ID]; ok {
		e.mu.Unlock()
		return c
	}
	e.mu.Unlock()

	// Load outside the lock; a lost race just discards one extra load.
	c := NewCoordinator(ctx, sess, e.gateway, e.window, e.newTimer, e.onCommit)

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.coords[sess.ID]; ok {
		return existing
	}
	e.coords[sess.ID] = c
	return c
}

// Detach flushes and closes the coordinator for sess, if any.
func (e *Engine) Detach(sess Session, flush bool) {
	if sess.IsZero() {
		return
	}
	e.mu.Lock()
	c, ok := e.coords[sess.ID]
	delete(e.coords, sess.ID)
	e.mu.Unlock()
	if ok {
		c.Close(flush)
	}
}

// Bind subscribes the engine to resolver session changes; returns the
// unsubscribe handle. The previously delivered session is flushed before the
// new one is hydrated.
func (e *Engine) Bind(r *Resolver) func() {
	var mu sync.Mutex
	var last Session
	return r.Subscribe(func(sess Session) {
		mu.Lock()
		prev := last
		last = sess
		mu.Unlock()

		if !prev.IsZero() && prev.ID != sess.ID {
			e.Detach(prev, true)
		}
		if !sess.IsZero() {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			e.Attach(ctx, sess)
			cancel()
		}
	})
}

// Shutdown flushes and closes every coordinator.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	coords := make([]*Coordinator, 0, len(e.coords))
	for _, c := range e.coords {
		coords = append(coords, c)
	}
	e.coords = make(map[string]*Coordinator)
	e.mu.Unlock()

	for _, c := range coords {
		c.Close(true)
	}
	log.Println("profile sync engine stopped, pending state flushed")
}
