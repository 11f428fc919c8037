package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTripsEveryField(t *testing.T) {
	ls, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	stored := models.Profile{
		ImpactScore: 42,
		MoodHistory: []models.MoodLog{
			{ID: "m1", Mood: "hopeful", Timestamp: 1700000000000},
		},
		ExploredTopics: []models.TopicStructure{
			{
				Topic:     "Composting",
				Summary:   "turning scraps into soil",
				Subtopics: []models.Subtopic{{Title: "Bokashi", Description: "fermented scraps"}},
			},
		},
		QuizHistory: []models.QuizResult{
			{Topic: "Recycling", Score: 4, Total: 5, Timestamp: 1700000000001},
		},
		EcoHistory: []models.EcoShift{
			{
				ID:          "e1",
				Activity:    "commuting",
				Shift:       "cycle to work",
				PersonalWin: "morning energy",
				EcoWin:      "less exhaust",
				Timestamp:   1700000000002,
			},
		},
		LastActionTimestamp: 1700000000003,
		DailyActionCount:    7,
	}
	require.NoError(t, ls.Save("user-a", stored))

	got := ls.Load("user-a")
	assert.Equal(t, stored, got)
}

func TestLocalStoreKeepsProfilesSeparatePerID(t *testing.T) {
	ls, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, ls.Save("user-a", models.Profile{ImpactScore: 10}))
	require.NoError(t, ls.Save("user-b", models.Profile{ImpactScore: 20}))

	assert.Equal(t, float64(10), ls.Load("user-a").ImpactScore)
	assert.Equal(t, float64(20), ls.Load("user-b").ImpactScore)
}

func TestLocalStoreDefaultsWhenMissing(t *testing.T) {
	ls, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	p := ls.Load("never-saved")
	assert.Equal(t, models.DefaultImpactScore, p.ImpactScore)
	assert.Empty(t, p.MoodHistory)
}

func TestLocalStoreDefaultsWhenCorrupt(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, LocalStoreFile), []byte("{not json"), 0o644))

	p := ls.Load("user-a")
	assert.Equal(t, models.DefaultImpactScore, p.ImpactScore)

	// A save on top of corrupt data starts a fresh blob rather than failing.
	require.NoError(t, ls.Save("user-a", models.Profile{ImpactScore: 5}))
	assert.Equal(t, float64(5), ls.Load("user-a").ImpactScore)
}
