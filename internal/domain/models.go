package domain

// OptionLabel identifies one of the four fixed answer choices.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// Valid reports whether the label is one of the four known choices.
func (l OptionLabel) Valid() bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Question is a single multiple-choice item from a subtopic's bank.
// Immutable once loaded.
type Question struct {
	ID            int64                  `json:"id"`
	Text          string                 `json:"text"`
	Options       map[OptionLabel]string `json:"options"`
	CorrectOption OptionLabel            `json:"correctOption"`
	Explanation   string                 `json:"explanation,omitempty"`
	ImageRef      string                 `json:"imageRef,omitempty"`
}

// QuizConfig holds the parameters chosen before a session starts.
// Read-only after that.
type QuizConfig struct {
	QuestionCount    int  `json:"questionCount"`
	TimeLimitMinutes int  `json:"timeLimitMinutes"` // 0 = untimed
	MaxSkips         int  `json:"maxSkips"`
	Randomize        bool `json:"randomize"`
	// MinutePerQuestion overrides TimeLimitMinutes with one minute per
	// resolved question.
	MinutePerQuestion bool `json:"minutePerQuestion"`
}

// ResolveTimeLimitMinutes returns the effective limit for a session of
// questionCount questions.
func (c QuizConfig) ResolveTimeLimitMinutes(questionCount int) int {
	if c.MinutePerQuestion {
		return questionCount
	}
	return c.TimeLimitMinutes
}

// QuestionResult is the per-question line of a finished session's summary.
type QuestionResult struct {
	QuestionID    int64       `json:"questionId"`
	UserAnswer    OptionLabel `json:"userAnswer,omitempty"`
	CorrectAnswer OptionLabel `json:"correctAnswer"`
	IsCorrect     bool        `json:"isCorrect"`
}

// PassThresholdPercent is the fixed pass mark applied to the rounded percentage.
const PassThresholdPercent = 70

// Summary is the immutable outcome of a finished session.
type Summary struct {
	CorrectCount      int              `json:"correctCount"`
	TotalQuestions    int              `json:"totalQuestions"`
	Percentage        int              `json:"percentage"`
	Passed            bool             `json:"passed"`
	TimeTakenMinutes  int              `json:"timeTakenMinutes"`
	PerQuestion       []QuestionResult `json:"perQuestion"`
	QuestionsAnswered int              `json:"questionsAnswered"`
	QuestionsSkipped  int              `json:"questionsSkipped"`
}

// ResultReport wraps a Summary with the identifiers the reporting sink needs.
type ResultReport struct {
	SessionID  string  `json:"sessionId"`
	UserID     string  `json:"userId"`
	SubtopicID string  `json:"subtopicId"`
	Summary    Summary `json:"summary"`
}
