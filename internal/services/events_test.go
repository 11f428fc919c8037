package services

import (
	"sync"
	"testing"
	"time"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowConn records how many WriteJSON calls overlap.
type slowConn struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	writes      int
}

func (c *slowConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.writes++
	c.mu.Unlock()
	return nil
}

func (c *slowConn) Close() error { return nil }

func (c *slowConn) counts() (writes, peak int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes, c.maxInFlight
}

func TestProfileListenerWritesNeverOverlap(t *testing.T) {
	conn := &slowConn{}
	out, unregister := RegisterProfileListener("user-x", conn)
	defer unregister()

	snap := models.DefaultProfile(1)
	event := ProfileEvent{Type: "profile_updated", UserID: "user-x", Profile: &snap, Timestamp: time.Now().UTC()}

	// Two fan-outs racing the registrant's own snapshot write.
	FanOutProfileEvent(event)
	FanOutProfileEvent(event)
	require.NoError(t, out.WriteJSON(event))

	assert.Eventually(t, func() bool {
		writes, _ := conn.counts()
		return writes == 3
	}, 2*time.Second, time.Millisecond)

	_, peak := conn.counts()
	assert.Equal(t, 1, peak, "a connection accepts one writer at a time")
}

func TestUnregisterStopsFanOut(t *testing.T) {
	conn := &slowConn{}
	_, unregister := RegisterProfileListener("user-y", conn)
	unregister()
	unregister()

	snap := models.DefaultProfile(1)
	FanOutProfileEvent(ProfileEvent{Type: "profile_updated", UserID: "user-y", Profile: &snap})

	time.Sleep(20 * time.Millisecond)
	writes, _ := conn.counts()
	assert.Zero(t, writes)
}
