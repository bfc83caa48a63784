package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"amt-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches a subtopic's question bank from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, subtopicID string) ([]domain.Question, error)
}

// QuestionRepository caches question banks in Redis (one JSON blob per
// subtopic) and falls back to a loader on cache miss.
// Banks are stored as: SET subtopic:{subtopicID}:questions {json} EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) FetchQuestions(ctx context.Context, subtopicID string) ([]domain.Question, error) {
	key := r.bankKey(subtopicID)

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		if questions, ok := decodeBank(raw); ok {
			return questions, nil
		}
	}

	result, err, _ := r.sf.Do(subtopicID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := r.client.Get(ctx, key).Bytes()
		if err == nil {
			if questions, ok := decodeBank(raw); ok {
				return questions, nil
			}
		}

		questions, err := r.loader.LoadQuestions(ctx, subtopicID)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(questions); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) bankKey(subtopicID string) string {
	return "subtopic:" + subtopicID + ":questions"
}

func decodeBank(raw []byte) ([]domain.Question, bool) {
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
