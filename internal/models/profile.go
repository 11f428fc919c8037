package models

// DefaultImpactScore is the score a brand-new profile starts with.
const DefaultImpactScore = 0.15

// History caps. Inserts prepend newest-first and truncate to these bounds.
const (
	MoodHistoryCap  = 50
	TopicHistoryCap = 10
	EcoHistoryCap   = 50
	QuizHistoryCap  = 50
)

// MoodLog is a single mood check-in.
type MoodLog struct {
	ID        string `bson:"id" json:"id"`
	Mood      string `bson:"mood" json:"mood"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
}

// QuizResult records one completed quiz.
type QuizResult struct {
	Topic     string `bson:"topic" json:"topic"`
	Score     int    `bson:"score" json:"score"`
	Total     int    `bson:"total" json:"total"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
}

// EcoShift is a completed sustainable-habit swap.
type EcoShift struct {
	ID          string `bson:"id" json:"id"`
	Activity    string `bson:"activity" json:"activity"`
	Shift       string `bson:"shift" json:"shift"`
	PersonalWin string `bson:"personal_win" json:"personalWin"`
	EcoWin      string `bson:"eco_win" json:"ecoWin"`
	Timestamp   int64  `bson:"timestamp" json:"timestamp"`
}

// Profile is the per-user aggregate the whole app revolves around.
// It round-trips losslessly through both MongoDB (bson) and the local
// JSON file store (json). Timestamps are Unix milliseconds to stay
// interchangeable with rows written by the original frontend.
type Profile struct {
	ImpactScore         float64          `bson:"impact_score" json:"impactScore"`
	MoodHistory         []MoodLog        `bson:"mood_history" json:"moodHistory"`
	ExploredTopics      []TopicStructure `bson:"explored_topics" json:"exploredTopics"`
	QuizHistory         []QuizResult     `bson:"quiz_history" json:"quizHistory"`
	EcoHistory          []EcoShift       `bson:"eco_history" json:"ecoHistory"`
	LastActionTimestamp int64            `bson:"last_action_timestamp" json:"lastActionTimestamp"`
	DailyActionCount    int              `bson:"daily_action_count" json:"dailyActionCount"`
}

// DefaultProfile returns the profile substituted whenever no persisted
// record exists (fresh session, missing row, corrupt local blob).
// Slices are non-nil so serialized output always carries arrays.
func DefaultProfile(now int64) Profile {
	return Profile{
		ImpactScore:         DefaultImpactScore,
		MoodHistory:         []MoodLog{},
		ExploredTopics:      []TopicStructure{},
		QuizHistory:         []QuizResult{},
		EcoHistory:          []EcoShift{},
		LastActionTimestamp: now,
		DailyActionCount:    0,
	}
}
