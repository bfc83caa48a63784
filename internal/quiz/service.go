package quiz

import (
	"context"
	"log"
	"math/rand"
	"time"

	"amt-quiz-service/internal/domain"
)

// SessionRepository abstracts how active sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionRepository loads a subtopic's question bank (from cache/backing store).
type QuestionRepository interface {
	FetchQuestions(ctx context.Context, subtopicID string) ([]domain.Question, error)
}

// ResultReporter receives finished-session summaries for persistence.
// Reporting is fire-and-forget: a session is Finished whether or not the
// report lands.
type ResultReporter interface {
	Report(ctx context.Context, report domain.ResultReport) error
}

const reportTimeout = 5 * time.Second

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionRepository
	reporter  ResultReporter
	tick      time.Duration
}

func NewQuizService(sessions SessionRepository, questions QuestionRepository, reporter ResultReporter) *QuizService {
	return NewQuizServiceWithTick(sessions, questions, reporter, time.Second)
}

// NewQuizServiceWithTick overrides the timer tick interval, for tests.
func NewQuizServiceWithTick(sessions SessionRepository, questions QuestionRepository, reporter ResultReporter, tick time.Duration) *QuizService {
	return &QuizService{sessions: sessions, questions: questions, reporter: reporter, tick: tick}
}

// Start fetches the subtopic's question bank and creates an active session.
// Fails fast with domain.ErrNoQuestions when the bank is empty rather than
// handing out a session that can never be played.
func (s *QuizService) Start(ctx context.Context, sessionID, userID, subtopicID string, cfg domain.QuizConfig) (*Session, error) {
	pool, err := s.questions.FetchQuestions(ctx, subtopicID)
	if err != nil {
		return nil, err
	}

	session, err := NewSession(sessionID, userID, subtopicID, cfg, pool)
	if err != nil {
		return nil, err
	}
	if s.reporter != nil {
		session.OnFinish(func(summary domain.Summary) {
			reportCtx, cancel := context.WithTimeout(context.Background(), reportTimeout)
			defer cancel()
			report := domain.ResultReport{
				SessionID:  sessionID,
				UserID:     userID,
				SubtopicID: subtopicID,
				Summary:    summary,
			}
			if err := s.reporter.Report(reportCtx, report); err != nil {
				log.Printf("report result for session %s: %v", sessionID, err)
			}
		})
	}

	s.sessions.Put(session)
	go session.Watch(s.tick)
	return session, nil
}

// SelectAnswer records the answer choice for the session's current question.
func (s *QuizService) SelectAnswer(sessionID string, label domain.OptionLabel) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.SelectAnswer(label)
}

// Skip defers the current question to the recall phase.
func (s *QuizService) Skip(sessionID string) (*QuestionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Skip()
}

// Advance commits the current question and moves to the next one; when the
// session runs out of questions it finishes and the summary is returned.
func (s *QuizService) Advance(sessionID string) (*QuestionView, *domain.Summary, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	view, summary, err := session.Advance()
	if summary != nil {
		s.sessions.Delete(sessionID)
	}
	return view, summary, err
}

// Submit finishes the session and returns its summary.
func (s *QuizService) Submit(sessionID string) (domain.Summary, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Summary{}, domain.ErrSessionNotFound
	}
	summary, err := session.Submit()
	if err == nil {
		s.sessions.Delete(sessionID)
	}
	return summary, err
}

// Abandon discards an in-flight session without reporting a result.
func (s *QuizService) Abandon(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Abandon()
	s.sessions.Delete(sessionID)
}

// Subscribe returns a channel of events for a session. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(sessionID string) (<-chan Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

const sessionIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewSessionID produces a short random identifier for a session.
func NewSessionID() string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = sessionIDAlphabet[rand.Intn(len(sessionIDAlphabet))]
	}
	return string(b)
}
