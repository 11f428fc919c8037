package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualTimer lets tests elapse the debounce window deterministically.
type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.stopped = true
	return true
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) factory() TimerFactory {
	return func(d time.Duration, fn func()) Timer {
		c.mu.Lock()
		defer c.mu.Unlock()
		t := &manualTimer{fn: fn}
		c.timers = append(c.timers, t)
		return t
	}
}

// takeArmed detaches the most recent still-armed timer and returns its
// callback, so tests control which goroutine runs the fire.
func (c *manualClock) takeArmed(t *testing.T) func() {
	t.Helper()
	c.mu.Lock()
	var armed *manualTimer
	for _, tm := range c.timers {
		if !tm.stopped {
			armed = tm
		}
	}
	c.mu.Unlock()
	require.NotNil(t, armed, "no armed timer to elapse")
	armed.stopped = true
	return armed.fn
}

// elapse fires the most recent still-armed timer, as a real clock would once
// the window runs out.
func (c *manualClock) elapse(t *testing.T) {
	t.Helper()
	c.takeArmed(t)()
}

func (c *manualClock) armedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, tm := range c.timers {
		if !tm.stopped {
			n++
		}
	}
	return n
}

type savedRow struct {
	id      string
	profile models.Profile
}

// recordingRowStore is an in-memory RowStore capturing every upsert.
type recordingRowStore struct {
	mu     sync.Mutex
	rows   map[string]models.Profile
	saves  []savedRow
	loads  map[string]int
	getErr error
}

func newRecordingRowStore() *recordingRowStore {
	return &recordingRowStore{rows: make(map[string]models.Profile), loads: make(map[string]int)}
}

func (s *recordingRowStore) Get(_ context.Context, id string) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads[id]++
	if s.getErr != nil {
		return models.Profile{}, s.getErr
	}
	p, ok := s.rows[id]
	if !ok {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func (s *recordingRowStore) Upsert(_ context.Context, id string, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id] = p
	s.saves = append(s.saves, savedRow{id: id, profile: p})
	return nil
}

func (s *recordingRowStore) savedRows() []savedRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]savedRow(nil), s.saves...)
}

// blockingRowStore holds each Upsert until released and tracks how many run
// at once.
type blockingRowStore struct {
	*recordingRowStore
	gate        sync.Mutex
	inFlight    int
	maxInFlight int
	entered     chan struct{}
	release     chan struct{}
}

func newBlockingRowStore() *blockingRowStore {
	return &blockingRowStore{
		recordingRowStore: newRecordingRowStore(),
		entered:           make(chan struct{}, 4),
		release:           make(chan struct{}),
	}
}

func (s *blockingRowStore) Upsert(ctx context.Context, id string, p models.Profile) error {
	s.gate.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.gate.Unlock()

	s.entered <- struct{}{}
	<-s.release

	s.gate.Lock()
	s.inFlight--
	s.gate.Unlock()
	return s.recordingRowStore.Upsert(ctx, id, p)
}

func (s *blockingRowStore) concurrentPeak() int {
	s.gate.Lock()
	defer s.gate.Unlock()
	return s.maxInFlight
}

func testGateway(t *testing.T, remote RowStore) *Gateway {
	t.Helper()
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return NewGateway(remote, local)
}

func authSession(id string) Session {
	return Session{Kind: SessionAuthenticated, ID: id, Email: id + "@example.com"}
}

func TestCoordinatorCoalescesRapidMutations(t *testing.T) {
	remote := newRecordingRowStore()
	clock := &manualClock{}
	engine := NewEngine(testGateway(t, remote), 2*time.Second, clock.factory(), nil)

	c := engine.Attach(context.Background(), authSession("user-a"))
	require.Equal(t, SyncIdle, c.State())

	// Mutations at t=0, t=500, t=1000: each restarts the window.
	for i := 0; i < 3; i++ {
		c.Mutate(func(p models.Profile) models.Profile {
			return ApplyImpactDelta(p, 1, int64(i))
		})
	}
	assert.Equal(t, SyncPendingWrite, c.State())
	assert.Empty(t, remote.savedRows(), "nothing persists before the window elapses")
	assert.Equal(t, 1, clock.armedCount(), "restarting the window must cancel the prior timer")

	clock.elapse(t)

	saves := remote.savedRows()
	require.Len(t, saves, 1, "three rapid mutations coalesce into one write")
	assert.Equal(t, "user-a", saves[0].id)
	assert.Equal(t, float64(3), saves[0].profile.ImpactScore, "the write carries the final accumulated state")
	assert.Equal(t, SyncIdle, c.State())
}

func TestCoordinatorNextMutationRetriggersCycle(t *testing.T) {
	remote := newRecordingRowStore()
	clock := &manualClock{}
	engine := NewEngine(testGateway(t, remote), 2*time.Second, clock.factory(), nil)

	c := engine.Attach(context.Background(), authSession("user-a"))

	c.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 5, 1) })
	clock.elapse(t)
	require.Len(t, remote.savedRows(), 1)

	c.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 5, 2) })
	assert.Equal(t, SyncPendingWrite, c.State())
	clock.elapse(t)

	saves := remote.savedRows()
	require.Len(t, saves, 2)
	assert.Equal(t, float64(10), saves[1].profile.ImpactScore)
}

func TestCoordinatorFlushWritesPendingStateImmediately(t *testing.T) {
	remote := newRecordingRowStore()
	clock := &manualClock{}
	engine := NewEngine(testGateway(t, remote), 2*time.Second, clock.factory(), nil)

	c := engine.Attach(context.Background(), authSession("user-a"))
	c.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 7, 1) })

	c.Flush()

	saves := remote.savedRows()
	require.Len(t, saves, 1)
	assert.Equal(t, float64(7), saves[0].profile.ImpactScore)
	assert.Equal(t, SyncIdle, c.State())
	assert.Equal(t, 0, clock.armedCount(), "flush cancels the pending window")
}

func TestFlushQueuesBehindInFlightSave(t *testing.T) {
	remote := newBlockingRowStore()
	clock := &manualClock{}
	engine := NewEngine(testGateway(t, remote), 2*time.Second, clock.factory(), nil)

	c := engine.Attach(context.Background(), authSession("user-a"))
	c.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 1, 1) })

	// Window elapses; the save blocks inside the row store.
	fire := clock.takeArmed(t)
	go fire()
	<-remote.entered

	// Edit during the in-flight save, then flush.
	c.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 1, 2) })
	flushed := make(chan struct{})
	go func() {
		c.Flush()
		close(flushed)
	}()

	// The flush must wait for the in-flight save, never overlap it.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, remote.concurrentPeak(), "at most one outstanding write per session")

	remote.release <- struct{}{} // let the timer save finish
	<-remote.entered
	remote.release <- struct{}{} // let the flush save finish
	<-flushed

	saves := remote.savedRows()
	require.Len(t, saves, 2)
	assert.Equal(t, float64(1), saves[0].profile.ImpactScore)
	assert.Equal(t, float64(2), saves[1].profile.ImpactScore, "the flush write lands last and carries the newer state")
	assert.Equal(t, 1, remote.concurrentPeak())
}

func TestCoordinatorCloseWithoutFlushDiscardsPendingWrite(t *testing.T) {
	remote := newRecordingRowStore()
	clock := &manualClock{}
	engine := NewEngine(testGateway(t, remote), 2*time.Second, clock.factory(), nil)

	c := engine.Attach(context.Background(), authSession("user-a"))
	c.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 7, 1) })

	engine.Detach(authSession("user-a"), false)

	assert.Empty(t, remote.savedRows())
	// Mutations after close are ignored by the scheduler.
	c.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 1, 2) })
	assert.Equal(t, 0, clock.armedCount())
}

func TestSessionSwitchNeverWritesUnderNewIdentity(t *testing.T) {
	remote := newRecordingRowStore()
	clock := &manualClock{}
	engine := NewEngine(testGateway(t, remote), 2*time.Second, clock.factory(), nil)

	a := engine.Attach(context.Background(), authSession("user-a"))
	a.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 9, 1) })

	// Switch: outgoing session is flushed, then the incoming one attaches.
	engine.Detach(authSession("user-a"), true)
	b := engine.Attach(context.Background(), authSession("user-b"))

	saves := remote.savedRows()
	require.Len(t, saves, 1)
	assert.Equal(t, "user-a", saves[0].id, "the pending write lands under the outgoing identity")
	assert.Equal(t, float64(9), saves[0].profile.ImpactScore)
	assert.Equal(t, models.DefaultImpactScore, b.Snapshot().ImpactScore, "the incoming session starts from its own persisted state")
}

func TestEngineLoadsExactlyOncePerSession(t *testing.T) {
	remote := newRecordingRowStore()
	remote.rows["user-a"] = models.Profile{ImpactScore: 42}
	clock := &manualClock{}
	engine := NewEngine(testGateway(t, remote), 2*time.Second, clock.factory(), nil)

	sess := authSession("user-a")
	c1 := engine.Attach(context.Background(), sess)
	c2 := engine.Attach(context.Background(), sess)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, remote.loads["user-a"])
	assert.Equal(t, float64(42), c1.Snapshot().ImpactScore, "hydration replaces the whole in-memory profile")
}

func TestEngineBindFlushesOutgoingSessionOnChange(t *testing.T) {
	remote := newRecordingRowStore()
	clock := &manualClock{}
	engine := NewEngine(testGateway(t, remote), 2*time.Second, clock.factory(), nil)
	resolver := NewResolver(false, nil)

	unbind := engine.Bind(resolver)
	defer unbind()

	resolver.Establish(authSession("user-a"))
	a := engine.Attach(context.Background(), authSession("user-a"))
	a.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 4, 1) })

	resolver.Establish(authSession("user-b"))

	saves := remote.savedRows()
	require.Len(t, saves, 1)
	assert.Equal(t, "user-a", saves[0].id)
	assert.Equal(t, float64(4), saves[0].profile.ImpactScore)
}

func TestEngineShutdownFlushesAllPendingState(t *testing.T) {
	remote := newRecordingRowStore()
	clock := &manualClock{}
	engine := NewEngine(testGateway(t, remote), 2*time.Second, clock.factory(), nil)

	a := engine.Attach(context.Background(), authSession("user-a"))
	b := engine.Attach(context.Background(), authSession("user-b"))
	a.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 2, 1) })
	b.Mutate(func(p models.Profile) models.Profile { return ApplyImpactDelta(p, 3, 1) })

	engine.Shutdown()

	byID := make(map[string]float64)
	for _, s := range remote.savedRows() {
		byID[s.id] = s.profile.ImpactScore
	}
	assert.Equal(t, float64(2), byID["user-a"])
	assert.Equal(t, float64(3), byID["user-b"])
}
