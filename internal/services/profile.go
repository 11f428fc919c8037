package services

import (
	"math"
	"strings"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
)

// Impact gains awarded by each kind of action, in percent.
const (
	MoodImpactGain   = 1
	TopicImpactGain  = 1
	BreathImpactGain = 2
	EcoImpactGain    = 3
)

// ApplyImpactDelta moves the impact score by percent, rounding then clamping
// to [0,100], and stamps the action bookkeeping fields. Rounding happens at
// every step, so a sequence of deltas is path-dependent on purpose.
func ApplyImpactDelta(p models.Profile, percent float64, now int64) models.Profile {
	next := math.Round(p.ImpactScore + percent)
	if next < 0 {
		next = 0
	}
	if next > 100 {
		next = 100
	}
	p.ImpactScore = next
	p.LastActionTimestamp = now
	p.DailyActionCount++
	return p
}

// RecordTopic prepends a freshly explored topic, keeping at most
// TopicHistoryCap entries. Topics are de-duplicated by case-insensitive
// name: recording "Solar" after "solar" is a no-op.
func RecordTopic(p models.Profile, topic models.TopicStructure) models.Profile {
	key := strings.ToLower(topic.Topic)
	for _, t := range p.ExploredTopics {
		if strings.ToLower(t.Topic) == key {
			return p
		}
	}
	p.ExploredTopics = prepend(p.ExploredTopics, topic, models.TopicHistoryCap)
	return p
}

// RecordMood prepends a mood log (cap MoodHistoryCap) and awards the fixed
// mood impact gain.
func RecordMood(p models.Profile, entry models.MoodLog, now int64) models.Profile {
	p.MoodHistory = prepend(p.MoodHistory, entry, models.MoodHistoryCap)
	return ApplyImpactDelta(p, MoodImpactGain, now)
}

// RecordEcoShift prepends a completed habit swap (cap EcoHistoryCap) and
// awards the fixed eco impact gain.
func RecordEcoShift(p models.Profile, shift models.EcoShift, now int64) models.Profile {
	p.EcoHistory = prepend(p.EcoHistory, shift, models.EcoHistoryCap)
	return ApplyImpactDelta(p, EcoImpactGain, now)
}

// RecordQuizResult prepends a quiz result. The original frontend never
// truncated quiz history; we cap it at QuizHistoryCap so a single profile
// row cannot grow without bound.
func RecordQuizResult(p models.Profile, result models.QuizResult) models.Profile {
	p.QuizHistory = prepend(p.QuizHistory, result, models.QuizHistoryCap)
	return p
}

// prepend inserts v newest-first and truncates to cap. The backing array is
// copied so earlier snapshots are never aliased.
func prepend[T any](list []T, v T, limit int) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	out = append(out, list...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
