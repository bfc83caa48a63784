package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"amt-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultReporter persists finished-session summaries as JSONB rows.
type ResultReporter struct {
	pool *pgxpool.Pool
}

func NewResultReporter(pool *pgxpool.Pool) *ResultReporter {
	return &ResultReporter{pool: pool}
}

func (r *ResultReporter) Report(ctx context.Context, report domain.ResultReport) error {
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO quiz_results (session_id, user_id, subtopic_id, summary) VALUES ($1, $2, $3, $4)`,
		report.SessionID, report.UserID, report.SubtopicID, summary)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}
