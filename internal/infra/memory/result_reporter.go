package memory

import (
	"context"
	"sync"

	"amt-quiz-service/internal/domain"
)

// ResultReporter keeps finished-session reports in memory. It backs the
// server when no Postgres is configured and doubles as a test recorder.
type ResultReporter struct {
	mu      sync.Mutex
	reports []domain.ResultReport
}

func NewResultReporter() *ResultReporter {
	return &ResultReporter{}
}

func (r *ResultReporter) Report(_ context.Context, report domain.ResultReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

// Reports returns a copy of everything reported so far.
func (r *ResultReporter) Reports() []domain.ResultReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ResultReport, len(r.reports))
	copy(out, r.reports)
	return out
}
