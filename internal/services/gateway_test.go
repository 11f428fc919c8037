package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayRoutesAuthenticatedSessionsToRemote(t *testing.T) {
	remote := newRecordingRowStore()
	remote.rows["user-a"] = models.Profile{ImpactScore: 33}
	gw := testGateway(t, remote)

	p := gw.Load(context.Background(), authSession("user-a"))
	assert.Equal(t, float64(33), p.ImpactScore)

	gw.Save(context.Background(), authSession("user-a"), models.Profile{ImpactScore: 44})
	saves := remote.savedRows()
	require.Len(t, saves, 1)
	assert.Equal(t, float64(44), saves[0].profile.ImpactScore)
}

func TestGatewayRoutesGuestSessionsToLocalStore(t *testing.T) {
	remote := newRecordingRowStore()
	gw := testGateway(t, remote)

	gw.Save(context.Background(), GuestSession, models.Profile{ImpactScore: 12})

	assert.Empty(t, remote.savedRows(), "guest data never reaches the remote store")
	p := gw.Load(context.Background(), GuestSession)
	assert.Equal(t, float64(12), p.ImpactScore)
}

func TestGatewayWithoutRemoteStoreUsesLocalForEveryone(t *testing.T) {
	gw := testGateway(t, nil)

	gw.Save(context.Background(), authSession("user-a"), models.Profile{ImpactScore: 9})
	p := gw.Load(context.Background(), authSession("user-a"))
	assert.Equal(t, float64(9), p.ImpactScore)
}

func TestGatewayLoadDefaultsOnMissingProfile(t *testing.T) {
	gw := testGateway(t, newRecordingRowStore())

	p := gw.Load(context.Background(), authSession("nobody"))
	assert.Equal(t, models.DefaultImpactScore, p.ImpactScore)
	assert.NotNil(t, p.MoodHistory)
	assert.NotNil(t, p.ExploredTopics)
	assert.NotZero(t, p.LastActionTimestamp)
}

func TestGatewayLoadDefaultsOnRemoteError(t *testing.T) {
	remote := newRecordingRowStore()
	remote.rows["user-a"] = models.Profile{ImpactScore: 90}
	remote.getErr = errors.New("connection reset")
	gw := testGateway(t, remote)

	p := gw.Load(context.Background(), authSession("user-a"))
	assert.Equal(t, models.DefaultImpactScore, p.ImpactScore, "a transport failure yields defaults, never an error")
}
