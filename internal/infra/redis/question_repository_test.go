package redis

import (
	"context"
	"testing"
	"time"

	"amt-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingLoader struct {
	banks map[string][]domain.Question
	calls int
}

func (l *countingLoader) LoadQuestions(_ context.Context, subtopicID string) ([]domain.Question, error) {
	l.calls++
	if bank, ok := l.banks[subtopicID]; ok {
		return bank, nil
	}
	return nil, domain.ErrSubtopicNotFound
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{
			ID:   1,
			Text: "Which instrument shows magneto drop during runup?",
			Options: map[domain.OptionLabel]string{
				domain.OptionA: "Tachometer",
				domain.OptionB: "Manifold pressure gauge",
				domain.OptionC: "EGT",
				domain.OptionD: "Ammeter",
			},
			CorrectOption: domain.OptionA,
		},
	}
}

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingLoader{banks: map[string][]domain.Question{"powerplant": sampleBank()}}
	repo := NewQuestionRepository(client, loader, time.Minute)

	questions, err := repo.FetchQuestions(context.Background(), "powerplant")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectOption != domain.OptionA {
		t.Fatalf("unexpected bank %+v", questions)
	}
	if !mr.Exists("subtopic:powerplant:questions") {
		t.Fatalf("expected bank cached in redis")
	}

	if _, err := repo.FetchQuestions(context.Background(), "powerplant"); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}
}

func TestQuestionRepositoryFallsBackAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingLoader{banks: map[string][]domain.Question{"powerplant": sampleBank()}}
	repo := NewQuestionRepository(client, loader, time.Minute)

	if _, err := repo.FetchQuestions(context.Background(), "powerplant"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := repo.FetchQuestions(context.Background(), "powerplant"); err != nil {
		t.Fatalf("fetch after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected refill after expiry, loader calls %d", loader.calls)
	}
}
