package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is idempotent; it is applied on every start and by the migrate
// command.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS habits (
		id              BIGSERIAL PRIMARY KEY,
		user_id         BIGINT NOT NULL,
		name            VARCHAR(100) NOT NULL,
		target_per_week SMALLINT NOT NULL DEFAULT 7 CHECK (target_per_week BETWEEN 1 AND 7),
		created         DATE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id, id)`,
	`CREATE TABLE IF NOT EXISTS habit_records (
		habit_id BIGINT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		date     DATE NOT NULL,
		PRIMARY KEY (habit_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id             BIGSERIAL PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id   BIGINT,
		routing_key    VARCHAR(100) NOT NULL,
		payload        JSONB NOT NULL,
		status         VARCHAR(20) NOT NULL DEFAULT 'pending',
		retry_count    INT NOT NULL DEFAULT 0,
		next_retry_at  TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_events(id) WHERE status = 'pending'`,
}

func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range Schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
