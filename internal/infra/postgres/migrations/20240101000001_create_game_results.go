package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createGameResultsSQL = `
CREATE TABLE IF NOT EXISTS game_results (
	id           TEXT PRIMARY KEY,
	quiz_id      TEXT NOT NULL,
	host_id      TEXT NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL,
	player_count INTEGER NOT NULL DEFAULT 0,
	data         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS game_results_quiz_id_idx ON game_results (quiz_id);
CREATE INDEX IF NOT EXISTS game_results_host_id_idx ON game_results (host_id)`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createGameResultsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`DROP TABLE IF EXISTS game_results`)
			return err
		},
	)
}
