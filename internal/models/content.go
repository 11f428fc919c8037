package models

// Subtopic is one section of a generated topic report.
type Subtopic struct {
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
}

// TopicStructure is a generated knowledge report the user explored.
type TopicStructure struct {
	Topic      string     `bson:"topic" json:"topic"`
	Summary    string     `bson:"summary" json:"summary"`
	Subtopics  []Subtopic `bson:"subtopics" json:"subtopics"`
	FullReport string     `bson:"full_report,omitempty" json:"fullReport,omitempty"`
}

// QuizQuestion is one generated multiple-choice question.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// SubStep is a fine-grained action inside an activity step.
type SubStep struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ActivityStep is one phase of a generated optimization protocol.
type ActivityStep struct {
	StepNumber  int       `json:"stepNumber"`
	Instruction string    `json:"instruction"`
	Detail      string    `json:"detail"`
	ImagePrompt string    `json:"imagePrompt"`
	Visual      string    `json:"visual,omitempty"`
	SubSteps    []SubStep `json:"subSteps"`
}

// ActivityGuide is a full generated activity walkthrough.
type ActivityGuide struct {
	Overview string         `json:"overview"`
	Steps    []ActivityStep `json:"steps"`
}

// SupportiveContent is the mood-support payload: a short validation plus
// an optional serene visual (hosted URL or data URL).
type SupportiveContent struct {
	Text   string `json:"text"`
	Visual string `json:"visual,omitempty"`
}
