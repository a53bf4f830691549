package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"live-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultsStore writes finalized game results to Postgres. The row keeps
// a few queryable columns and the full aggregate as JSONB; rows are
// insert-only.
type ResultsStore struct {
	pool *pgxpool.Pool
}

func NewResultsStore(pool *pgxpool.Pool) *ResultsStore {
	return &ResultsStore{pool: pool}
}

func (s *ResultsStore) SaveResults(ctx context.Context, results domain.GameResults) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_results (id, quiz_id, host_id, finished_at, player_count, data)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		results.ID, results.QuizID, results.HostID, results.Timestamp, results.PlayerCount, data)
	if err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	return nil
}
