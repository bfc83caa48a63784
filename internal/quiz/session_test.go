package quiz_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"amt-quiz-service/internal/domain"
	"amt-quiz-service/internal/quiz"
)

// questionPool builds n questions whose correct option is always A.
func questionPool(n int) []domain.Question {
	pool := make([]domain.Question, n)
	for i := range pool {
		pool[i] = domain.Question{
			ID:   int64(i + 1),
			Text: fmt.Sprintf("question %d", i+1),
			Options: map[domain.OptionLabel]string{
				domain.OptionA: "right",
				domain.OptionB: "wrong",
				domain.OptionC: "wrong",
				domain.OptionD: "wrong",
			},
			CorrectOption: domain.OptionA,
		}
	}
	return pool
}

func newTestSession(t *testing.T, cfg domain.QuizConfig, pool []domain.Question) *quiz.Session {
	t.Helper()
	session, err := quiz.NewSession("s1", "u1", "powerplant", cfg, pool)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session
}

func TestScoreCommitsOnAdvanceNotOnSelect(t *testing.T) {
	session := newTestSession(t, domain.QuizConfig{QuestionCount: 2}, questionPool(2))

	// Wrong first, then corrected; only the final choice counts, once.
	if err := session.SelectAnswer(domain.OptionB); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := session.SelectAnswer(domain.OptionA); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if _, _, err := session.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	_, summary, err := session.Advance()
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if summary == nil {
		t.Fatalf("expected summary on final advance")
	}
	if summary.CorrectCount != 1 {
		t.Fatalf("expected 1 correct, got %d", summary.CorrectCount)
	}
}

func TestSkipRecallVisitsOriginalOrder(t *testing.T) {
	session := newTestSession(t, domain.QuizConfig{QuestionCount: 3, MaxSkips: 2}, questionPool(3))

	if _, err := session.Skip(); err != nil { // skip Q0
		t.Fatalf("skip q0: %v", err)
	}
	if _, err := session.Skip(); err != nil { // skip Q1
		t.Fatalf("skip q1: %v", err)
	}

	view := session.Current()
	if view.Index != 2 || view.Recall {
		t.Fatalf("expected primary Q2, got %+v", view)
	}

	view, summary, err := session.Advance()
	if err != nil || summary != nil {
		t.Fatalf("advance into recall: view=%v summary=%v err=%v", view, summary, err)
	}
	if !view.Recall || view.Index != 0 {
		t.Fatalf("expected recall of Q0 first, got %+v", view)
	}

	view, _, err = session.Advance()
	if err != nil {
		t.Fatalf("advance recall: %v", err)
	}
	if !view.Recall || view.Index != 1 {
		t.Fatalf("expected recall of Q1 second, got %+v", view)
	}
}

func TestSkipBudgetEnforced(t *testing.T) {
	session := newTestSession(t, domain.QuizConfig{QuestionCount: 3, MaxSkips: 1}, questionPool(3))

	if _, err := session.Skip(); err != nil {
		t.Fatalf("first skip: %v", err)
	}
	if _, err := session.Skip(); !errors.Is(err, domain.ErrSkipExhausted) {
		t.Fatalf("expected ErrSkipExhausted, got %v", err)
	}
	if remaining := session.SkipsRemaining(); remaining != 0 {
		t.Fatalf("expected 0 skips remaining, got %d", remaining)
	}
}

func TestSkipRejectedDuringRecall(t *testing.T) {
	session := newTestSession(t, domain.QuizConfig{QuestionCount: 2, MaxSkips: 2}, questionPool(2))

	if _, err := session.Skip(); err != nil {
		t.Fatalf("skip q0: %v", err)
	}
	if _, _, err := session.Advance(); err != nil { // past Q1, into recall
		t.Fatalf("advance: %v", err)
	}
	if view := session.Current(); !view.Recall {
		t.Fatalf("expected recall phase, got %+v", view)
	}
	if _, err := session.Skip(); !errors.Is(err, domain.ErrSkipDuringRecall) {
		t.Fatalf("expected ErrSkipDuringRecall, got %v", err)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	clock := newFakeClock(time.Unix(1700000000, 0))
	session, err := quiz.NewSessionWithClock("s1", "u1", "powerplant",
		domain.QuizConfig{QuestionCount: 2}, questionPool(2), clock.Now)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	if err := session.SelectAnswer(domain.OptionA); err != nil {
		t.Fatalf("select: %v", err)
	}
	clock.Advance(3 * time.Minute)
	first, err := session.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Elapsed time keeps moving; the cached summary must not.
	clock.Advance(10 * time.Minute)
	second, err := session.Submit()
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("summaries differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if first.TimeTakenMinutes != 3 {
		t.Fatalf("expected 3 minutes taken, got %d", first.TimeTakenMinutes)
	}
}

func TestQuestionCountClamping(t *testing.T) {
	cases := []struct {
		name      string
		count     int
		poolSize  int
		wantErr   bool
		wantTotal int
	}{
		{"pool larger than count", 5, 10, false, 5},
		{"count larger than pool", 10, 4, false, 4},
		{"exact", 3, 3, false, 3},
		{"empty pool", 5, 0, true, 0},
		{"zero count", 0, 10, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session, err := quiz.NewSession("s1", "u1", "sub",
				domain.QuizConfig{QuestionCount: tc.count}, questionPool(tc.poolSize))
			if tc.wantErr {
				if !errors.Is(err, domain.ErrNoQuestions) {
					t.Fatalf("expected ErrNoQuestions, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("new session: %v", err)
			}
			if total := session.Current().Total; total != tc.wantTotal {
				t.Fatalf("expected %d questions, got %d", tc.wantTotal, total)
			}
		})
	}
}

func TestPassThresholdUsesRoundedPercentage(t *testing.T) {
	cases := []struct {
		total, correct int
		wantPercentage int
		wantPassed     bool
	}{
		{10, 7, 70, true},   // exactly 70
		{13, 9, 69, false},  // 69.23 rounds down
		{7, 5, 71, true},    // 71.43 rounds down, still above
		{200, 139, 70, true}, // 69.5 rounds up to the threshold
		{10, 6, 60, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_of_%d", tc.correct, tc.total), func(t *testing.T) {
			summary := runStraightSession(t, tc.total, tc.correct)
			if summary.Percentage != tc.wantPercentage {
				t.Fatalf("expected %d%%, got %d%%", tc.wantPercentage, summary.Percentage)
			}
			if summary.Passed != tc.wantPassed {
				t.Fatalf("expected passed=%v at %d%%", tc.wantPassed, summary.Percentage)
			}
		})
	}
}

// runStraightSession answers the first `correct` questions right and the
// rest wrong, advancing through in order.
func runStraightSession(t *testing.T, total, correct int) domain.Summary {
	t.Helper()
	session := newTestSession(t, domain.QuizConfig{QuestionCount: total}, questionPool(total))
	for i := 0; i < total; i++ {
		label := domain.OptionB
		if i < correct {
			label = domain.OptionA
		}
		if err := session.SelectAnswer(label); err != nil {
			t.Fatalf("select q%d: %v", i, err)
		}
		_, summary, err := session.Advance()
		if err != nil {
			t.Fatalf("advance q%d: %v", i, err)
		}
		if summary != nil {
			return *summary
		}
	}
	t.Fatalf("session never finished")
	return domain.Summary{}
}

func TestFullSessionWithSkipsAndRecall(t *testing.T) {
	// 10 questions, answer 7 correctly, skip 2, answer the recalled ones
	// (1 right, 1 wrong), leave 1 wrong on the primary pass.
	session := newTestSession(t, domain.QuizConfig{QuestionCount: 10, MaxSkips: 3}, questionPool(10))

	var summary *domain.Summary
	answer := func(label domain.OptionLabel) {
		t.Helper()
		if err := session.SelectAnswer(label); err != nil {
			t.Fatalf("select: %v", err)
		}
		var err error
		_, summary, err = session.Advance()
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	for i := 0; i < 10; i++ {
		switch i {
		case 2, 5: // skipped, revisited later
			if _, err := session.Skip(); err != nil {
				t.Fatalf("skip q%d: %v", i, err)
			}
		case 8: // answered wrong
			answer(domain.OptionB)
		default:
			answer(domain.OptionA)
		}
	}

	// Recall phase: Q2 right, Q5 wrong.
	if view := session.Current(); !view.Recall || view.Index != 2 {
		t.Fatalf("expected recall of Q2, got %+v", view)
	}
	answer(domain.OptionA)
	answer(domain.OptionB)

	if summary == nil {
		t.Fatalf("expected finished session")
	}
	if summary.CorrectCount != 8 {
		t.Fatalf("expected 8 correct, got %d", summary.CorrectCount)
	}
	if summary.Percentage != 80 || !summary.Passed {
		t.Fatalf("expected 80%% pass, got %d%% passed=%v", summary.Percentage, summary.Passed)
	}
	if summary.QuestionsSkipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", summary.QuestionsSkipped)
	}
	if summary.QuestionsAnswered != 10 {
		t.Fatalf("expected 10 answered, got %d", summary.QuestionsAnswered)
	}
}

func TestOperationsAfterFinishAreRejected(t *testing.T) {
	session := newTestSession(t, domain.QuizConfig{QuestionCount: 1}, questionPool(1))
	if _, err := session.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := session.SelectAnswer(domain.OptionA); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished on select, got %v", err)
	}
	if _, _, err := session.Advance(); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished on advance, got %v", err)
	}
	if _, err := session.Skip(); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished on skip, got %v", err)
	}
}

func TestSkipClearsProvisionalAnswer(t *testing.T) {
	session := newTestSession(t, domain.QuizConfig{QuestionCount: 2, MaxSkips: 1}, questionPool(2))

	// Select on Q0, then skip it anyway; the selection must not survive.
	if err := session.SelectAnswer(domain.OptionA); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := session.Skip(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if _, _, err := session.Advance(); err != nil { // past Q1 into recall of Q0
		t.Fatalf("advance: %v", err)
	}

	summary, err := session.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Q0 was never re-answered during recall: not correct, not answered.
	if summary.CorrectCount != 0 {
		t.Fatalf("expected 0 correct, got %d", summary.CorrectCount)
	}
	if summary.PerQuestion[0].UserAnswer != "" || summary.PerQuestion[0].IsCorrect {
		t.Fatalf("expected Q0 unanswered, got %+v", summary.PerQuestion[0])
	}
}

func TestRandomizeKeepsQuestionSet(t *testing.T) {
	pool := questionPool(20)
	session := newTestSession(t, domain.QuizConfig{QuestionCount: 20, Randomize: true}, pool)

	seen := make(map[int64]bool)
	for {
		view := session.Current()
		if seen[view.QuestionID] {
			t.Fatalf("question %d served twice", view.QuestionID)
		}
		seen[view.QuestionID] = true
		if _, summary, err := session.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		} else if summary != nil {
			break
		}
	}
	if len(seen) != 20 {
		t.Fatalf("expected all 20 questions served, got %d", len(seen))
	}
}
