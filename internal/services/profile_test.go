package services

import (
	"fmt"
	"testing"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyImpactDeltaClampsAndStamps(t *testing.T) {
	p := models.DefaultProfile(0)

	p = ApplyImpactDelta(p, 3, 111)
	assert.Equal(t, float64(3), p.ImpactScore) // round(0.15 + 3)
	assert.Equal(t, int64(111), p.LastActionTimestamp)
	assert.Equal(t, 1, p.DailyActionCount)

	p = ApplyImpactDelta(p, 200, 222)
	assert.Equal(t, float64(100), p.ImpactScore)
	assert.Equal(t, 2, p.DailyActionCount)

	p = ApplyImpactDelta(p, -500, 333)
	assert.Equal(t, float64(0), p.ImpactScore)
	assert.Equal(t, int64(333), p.LastActionTimestamp)
}

// Rounding happens at each step, so applying deltas is path-dependent: the
// sequence below must be evaluated in order, not as a sum.
func TestApplyImpactDeltaIsPathDependent(t *testing.T) {
	p := models.DefaultProfile(0)

	for i, delta := range []float64{0.6, 0.6} {
		p = ApplyImpactDelta(p, delta, int64(i))
	}
	// Stepwise: round(0.15+0.6)=1, round(1+0.6)=2.
	assert.Equal(t, float64(2), p.ImpactScore)

	// Summing first gives round(0.15+1.2)=1 instead.
	q := models.DefaultProfile(0)
	q = ApplyImpactDelta(q, 1.2, 0)
	assert.Equal(t, float64(1), q.ImpactScore)
}

func TestRecordTopicDeduplicatesCaseInsensitively(t *testing.T) {
	p := models.DefaultProfile(0)

	p = RecordTopic(p, models.TopicStructure{Topic: "Solar"})
	p = RecordTopic(p, models.TopicStructure{Topic: "solar"})
	p = RecordTopic(p, models.TopicStructure{Topic: "SOLAR"})

	require.Len(t, p.ExploredTopics, 1)
	assert.Equal(t, "Solar", p.ExploredTopics[0].Topic)
}

func TestRecordTopicPrependsAndCaps(t *testing.T) {
	p := models.DefaultProfile(0)

	for i := 0; i < models.TopicHistoryCap+5; i++ {
		p = RecordTopic(p, models.TopicStructure{Topic: fmt.Sprintf("topic-%d", i)})
	}

	require.Len(t, p.ExploredTopics, models.TopicHistoryCap)
	// Newest first
	assert.Equal(t, "topic-14", p.ExploredTopics[0].Topic)
	assert.Equal(t, "topic-5", p.ExploredTopics[models.TopicHistoryCap-1].Topic)
}

func TestRecordMoodCapsHistoryAndAwardsImpact(t *testing.T) {
	p := models.DefaultProfile(0)

	for i := 0; i < models.MoodHistoryCap+10; i++ {
		entry := models.MoodLog{ID: fmt.Sprintf("m-%d", i), Mood: "calm", Timestamp: int64(i)}
		p = RecordMood(p, entry, int64(i))
	}

	require.Len(t, p.MoodHistory, models.MoodHistoryCap)
	assert.Equal(t, "m-59", p.MoodHistory[0].ID)
	assert.Equal(t, 60, p.DailyActionCount)
	assert.Equal(t, float64(60), p.ImpactScore) // +1 each, clamped far below 100
}

func TestRecordEcoShiftCapsHistoryAndAwardsImpact(t *testing.T) {
	p := models.DefaultProfile(0)

	for i := 0; i < models.EcoHistoryCap+3; i++ {
		shift := models.EcoShift{ID: fmt.Sprintf("e-%d", i), Activity: "commute", Timestamp: int64(i)}
		p = RecordEcoShift(p, shift, int64(i))
	}

	require.Len(t, p.EcoHistory, models.EcoHistoryCap)
	assert.Equal(t, "e-52", p.EcoHistory[0].ID)
	assert.Equal(t, float64(100), p.ImpactScore) // +3 x 53, clamped at 100
}

func TestRecordQuizResultCapsHistory(t *testing.T) {
	p := models.DefaultProfile(0)

	for i := 0; i < models.QuizHistoryCap+7; i++ {
		p = RecordQuizResult(p, models.QuizResult{Topic: fmt.Sprintf("q-%d", i), Score: 3, Total: 5})
	}

	require.Len(t, p.QuizHistory, models.QuizHistoryCap)
	assert.Equal(t, "q-56", p.QuizHistory[0].Topic)
	// Quiz results alone do not touch the score or bookkeeping
	assert.Equal(t, models.DefaultImpactScore, p.ImpactScore)
	assert.Equal(t, 0, p.DailyActionCount)
}

func TestMutationsDoNotAliasPriorSnapshots(t *testing.T) {
	p := models.DefaultProfile(0)
	p = RecordTopic(p, models.TopicStructure{Topic: "first"})

	snapshot := p
	p = RecordTopic(p, models.TopicStructure{Topic: "second"})

	require.Len(t, snapshot.ExploredTopics, 1)
	assert.Equal(t, "first", snapshot.ExploredTopics[0].Topic)
	require.Len(t, p.ExploredTopics, 2)
}
