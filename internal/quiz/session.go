package quiz

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"amt-quiz-service/internal/domain"
)

// Status tracks the session lifecycle.
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// EventType labels events pushed to session subscribers.
type EventType string

const (
	EventQuestion EventType = "question"
	EventTick     EventType = "tick"
	EventFinished EventType = "finished"
)

// Event is a state-change notification for subscribers (the websocket
// transport, primarily). Exactly one payload field is set per type.
type Event struct {
	Type             EventType       `json:"type"`
	Question         *QuestionView   `json:"question,omitempty"`
	RemainingSeconds int             `json:"remainingSeconds,omitempty"`
	Summary          *domain.Summary `json:"summary,omitempty"`
}

// QuestionView is what a client may see of the current question: the
// correct option and explanation are stripped until the summary.
type QuestionView struct {
	Index            int                           `json:"index"`
	Total            int                           `json:"total"`
	QuestionID       int64                         `json:"questionId"`
	Text             string                        `json:"text"`
	Options          map[domain.OptionLabel]string `json:"options"`
	ImageRef         string                        `json:"imageRef,omitempty"`
	Selected         domain.OptionLabel            `json:"selected,omitempty"`
	Recall           bool                          `json:"recall"`
	SkipsRemaining   int                           `json:"skipsRemaining"`
	RemainingSeconds int                           `json:"remainingSeconds"` // -1 when untimed
}

// Session is the timed quiz state machine. All state transitions happen
// under the mutex; when the timer expiry path and a user submit race, the
// first caller to finish wins and the other observes the cached summary.
type Session struct {
	id         string
	userID     string
	subtopicID string
	cfg        domain.QuizConfig
	limit      time.Duration
	now        func() time.Time

	mu        sync.Mutex
	questions []domain.Question
	current   int
	answers   map[int]domain.OptionLabel
	skipped   []int // ascending; filled during the primary pass only
	recallPos int   // -1 until the recall phase starts
	score     int
	startedAt time.Time
	status    Status
	summary   *domain.Summary
	onFinish  func(domain.Summary)

	done        chan struct{}
	subscribers map[chan Event]struct{}
}

// NewSession builds an active session from a config and a question pool.
// The configured count is clamped to the pool size; an empty pool or a
// zero resolved count fails with domain.ErrNoQuestions.
func NewSession(id, userID, subtopicID string, cfg domain.QuizConfig, pool []domain.Question) (*Session, error) {
	return newSessionWithClock(id, userID, subtopicID, cfg, pool, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, userID, subtopicID string, cfg domain.QuizConfig, pool []domain.Question, now func() time.Time) (*Session, error) {
	return newSessionWithClock(id, userID, subtopicID, cfg, pool, now)
}

func newSessionWithClock(id, userID, subtopicID string, cfg domain.QuizConfig, pool []domain.Question, now func() time.Time) (*Session, error) {
	count := cfg.QuestionCount
	if count > len(pool) {
		count = len(pool)
	}
	if count <= 0 {
		return nil, domain.ErrNoQuestions
	}

	questions := make([]domain.Question, len(pool))
	copy(questions, pool)
	if cfg.Randomize {
		rnd := rand.New(rand.NewSource(now().UnixNano()))
		rnd.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	questions = questions[:count]

	return &Session{
		id:          id,
		userID:      userID,
		subtopicID:  subtopicID,
		cfg:         cfg,
		limit:       time.Duration(cfg.ResolveTimeLimitMinutes(count)) * time.Minute,
		now:         now,
		questions:   questions,
		answers:     make(map[int]domain.OptionLabel),
		recallPos:   -1,
		startedAt:   now(),
		status:      StatusActive,
		done:        make(chan struct{}),
		subscribers: make(map[chan Event]struct{}),
	}, nil
}

func (s *Session) ID() string                { return s.id }
func (s *Session) UserID() string            { return s.userID }
func (s *Session) SubtopicID() string        { return s.subtopicID }
func (s *Session) Config() domain.QuizConfig { return s.cfg }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OnFinish installs a callback invoked exactly once, in its own goroutine,
// when the session produces its summary. Must be set before the first
// operation on the session.
func (s *Session) OnFinish(fn func(domain.Summary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinish = fn
}

// SelectAnswer records the choice for the current question. The choice
// stays overwritable until the question is advanced past; the score does
// not move here.
func (s *Session) SelectAnswer(label domain.OptionLabel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFinished {
		return domain.ErrSessionFinished
	}
	if !label.Valid() {
		return domain.ErrUnknownOption
	}
	s.answers[s.currentIndexLocked()] = label
	return nil
}

// Advance commits the current question's score and moves forward: through
// the primary pass, then the skipped questions in original order, then an
// implicit submit. Exactly one of view and summary is non-nil.
func (s *Session) Advance() (*QuestionView, *domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFinished {
		return nil, nil, domain.ErrSessionFinished
	}
	s.scoreCurrentLocked()
	if !s.moveForwardLocked() {
		sum := s.finishLocked()
		return nil, &sum, nil
	}
	view := s.currentViewLocked()
	s.broadcastLocked(Event{Type: EventQuestion, Question: view})
	return view, nil, nil
}

// Skip defers the current question to the recall phase without scoring it.
// Only allowed during the primary pass and while skip budget remains.
func (s *Session) Skip() (*QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFinished {
		return nil, domain.ErrSessionFinished
	}
	if s.recallPos >= 0 {
		return nil, domain.ErrSkipDuringRecall
	}
	if len(s.skipped) >= s.cfg.MaxSkips {
		return nil, domain.ErrSkipExhausted
	}

	idx := s.current
	s.skipped = append(s.skipped, idx)
	// A skipped question carries no answer until revisited.
	delete(s.answers, idx)
	s.moveForwardLocked()

	view := s.currentViewLocked()
	s.broadcastLocked(Event{Type: EventQuestion, Question: view})
	return view, nil
}

// Submit finalizes the session: the current question is scored as if
// advanced past, then the summary is computed once and cached. Repeat
// calls return the cached summary unchanged.
func (s *Session) Submit() (domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary != nil {
		return *s.summary, nil
	}
	if s.status == StatusFinished {
		// Abandoned sessions never produce a summary.
		return domain.Summary{}, domain.ErrSessionFinished
	}
	s.scoreCurrentLocked()
	return s.finishLocked(), nil
}

// Abandon discards an active session without a summary or report.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFinished {
		return
	}
	s.status = StatusFinished
	close(s.done)
}

// Current returns the view of the question under the cursor, or nil once
// the session is finished.
func (s *Session) Current() *QuestionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFinished {
		return nil
	}
	return s.currentViewLocked()
}

// SkipsRemaining reports the remaining skip budget.
func (s *Session) SkipsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.MaxSkips - len(s.skipped)
}

// Summary returns the cached summary of a submitted session.
func (s *Session) Summary() (domain.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return domain.Summary{}, false
	}
	return *s.summary, true
}

// Subscribe returns a channel of session events, primed with the current
// state. The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	var initial Event
	if s.summary != nil {
		initial = Event{Type: EventFinished, Summary: s.summary}
	} else {
		initial = Event{Type: EventQuestion, Question: s.currentViewLocked()}
	}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// currentIndexLocked is the index under the cursor: the primary pointer,
// or the skipped index being revisited during recall.
func (s *Session) currentIndexLocked() int {
	if s.recallPos >= 0 {
		return s.skipped[s.recallPos]
	}
	return s.current
}

// scoreCurrentLocked commits the current question. Each index is scored at
// most once because both cursors only move forward.
func (s *Session) scoreCurrentLocked() {
	idx := s.currentIndexLocked()
	if ans, ok := s.answers[idx]; ok && ans == s.questions[idx].CorrectOption {
		s.score++
	}
}

// moveForwardLocked advances the cursor, entering the recall phase when
// the primary pass runs out. Returns false when no question remains.
func (s *Session) moveForwardLocked() bool {
	if s.recallPos < 0 {
		if s.current < len(s.questions)-1 {
			s.current++
			return true
		}
		if len(s.skipped) > 0 {
			s.recallPos = 0
			return true
		}
		return false
	}
	if s.recallPos < len(s.skipped)-1 {
		s.recallPos++
		return true
	}
	return false
}

func (s *Session) finishLocked() domain.Summary {
	total := len(s.questions)
	per := make([]domain.QuestionResult, total)
	for i, q := range s.questions {
		result := domain.QuestionResult{
			QuestionID:    q.ID,
			CorrectAnswer: q.CorrectOption,
		}
		if ans, ok := s.answers[i]; ok {
			result.UserAnswer = ans
			result.IsCorrect = ans == q.CorrectOption
		}
		per[i] = result
	}

	percentage := int(math.Round(float64(s.score) / float64(total) * 100))
	minutes := int(math.Round(s.now().Sub(s.startedAt).Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	sum := domain.Summary{
		CorrectCount:      s.score,
		TotalQuestions:    total,
		Percentage:        percentage,
		Passed:            percentage >= domain.PassThresholdPercent,
		TimeTakenMinutes:  minutes,
		PerQuestion:       per,
		QuestionsAnswered: len(s.answers),
		QuestionsSkipped:  len(s.skipped),
	}
	s.summary = &sum
	s.status = StatusFinished
	close(s.done)
	s.broadcastLocked(Event{Type: EventFinished, Summary: &sum})
	if s.onFinish != nil {
		fn := s.onFinish
		go fn(sum)
	}
	return sum
}

func (s *Session) currentViewLocked() *QuestionView {
	idx := s.currentIndexLocked()
	q := s.questions[idx]
	options := make(map[domain.OptionLabel]string, len(q.Options))
	for label, text := range q.Options {
		options[label] = text
	}
	return &QuestionView{
		Index:            idx,
		Total:            len(s.questions),
		QuestionID:       q.ID,
		Text:             q.Text,
		Options:          options,
		ImageRef:         q.ImageRef,
		Selected:         s.answers[idx],
		Recall:           s.recallPos >= 0,
		SkipsRemaining:   s.cfg.MaxSkips - len(s.skipped),
		RemainingSeconds: s.remainingLocked(s.now()),
	}
}

func (s *Session) broadcast(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(event)
}

func (s *Session) broadcastLocked(event Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest pending event so slow clients never block.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
