package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverDeliversCurrentSessionImmediately(t *testing.T) {
	r := NewResolver(true, nil)

	var got []Session
	unsub := r.Subscribe(func(s Session) { got = append(got, s) })
	defer unsub()

	require.Len(t, got, 1)
	assert.Equal(t, GuestSession, got[0])
}

func TestResolverDeliversEveryChange(t *testing.T) {
	r := NewResolver(false, nil)

	var got []Session
	unsub := r.Subscribe(func(s Session) { got = append(got, s) })
	defer unsub()

	r.Establish(authSession("user-a"))
	r.Establish(authSession("user-b"))

	require.Len(t, got, 3)
	assert.True(t, got[0].IsZero())
	assert.Equal(t, "user-a", got[1].ID)
	assert.Equal(t, "user-b", got[2].ID)
	assert.Equal(t, "user-b", r.Current().ID)
}

func TestResolverUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	r := NewResolver(false, nil)

	calls := 0
	unsub := r.Subscribe(func(Session) { calls++ })
	require.Equal(t, 1, calls)

	unsub()
	unsub()
	r.Establish(authSession("user-a"))

	assert.Equal(t, 1, calls, "no delivery after unsubscribe")
}

func TestResolverSignOutClearsIdentityBeforeNotifying(t *testing.T) {
	var cleared []string
	clearedFirst := false
	r := NewResolver(false, func(token string) error {
		cleared = append(cleared, token)
		return nil
	})
	r.Establish(authSession("user-a"))

	unsub := r.Subscribe(func(s Session) {
		if s.IsZero() {
			clearedFirst = len(cleared) == 1
		}
	})
	defer unsub()

	require.NoError(t, r.SignOut("tok-123", false))

	assert.Equal(t, []string{"tok-123"}, cleared)
	assert.True(t, clearedFirst, "the durable identity is gone before subscribers hear about the sign-out")
	assert.True(t, r.Current().IsZero())
}

func TestResolverSignOutFallsBackToGuest(t *testing.T) {
	r := NewResolver(true, nil)
	r.Establish(authSession("user-a"))

	require.NoError(t, r.SignOut("tok-123", true))

	assert.Equal(t, GuestSession, r.Current())
}

func TestResolverSignOutStillPublishesOnClearFailure(t *testing.T) {
	clearErr := errors.New("redis down")
	r := NewResolver(false, func(string) error { return clearErr })
	r.Establish(authSession("user-a"))

	err := r.SignOut("tok-123", false)

	assert.ErrorIs(t, err, clearErr)
	assert.True(t, r.Current().IsZero(), "local identity is dropped even when the durable clear fails")
}
