package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema idempotently at startup. Statements run in one
// transaction so a failed deploy leaves the schema untouched.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return tx.Commit(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		auth_provider TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		streak INT NOT NULL DEFAULT 0,
		total_points INT NOT NULL DEFAULT 0,
		rewards INT NOT NULL DEFAULT 0,
		tasks UUID[] NOT NULL DEFAULT '{}',
		challenges UUID[] NOT NULL DEFAULT '{}',
		notifications UUID[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		activity TEXT NOT NULL,
		distance DOUBLE PRECISION NOT NULL,
		duration TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		skipped_reason TEXT NOT NULL DEFAULT '',
		points INT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks (user_id)`,

	`CREATE TABLE IF NOT EXISTS challenges (
		id UUID PRIMARY KEY,
		creator_id TEXT NOT NULL,
		assignee_ids TEXT[] NOT NULL DEFAULT '{}',
		task_id UUID NOT NULL,
		title TEXT NOT NULL,
		rules TEXT[] NOT NULL DEFAULT '{}',
		exceptions TEXT[] NOT NULL DEFAULT '{}',
		reward INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		duration TEXT NOT NULL DEFAULT '',
		participations JSONB NOT NULL DEFAULT '[]',
		winner_id TEXT,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_challenges_creator_id ON challenges (creator_id)`,
	`CREATE INDEX IF NOT EXISTS idx_challenges_status ON challenges (status)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		challenge_id UUID,
		message TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_challenge_id ON notifications (challenge_id)`,

	`CREATE TABLE IF NOT EXISTS device_tokens (
		user_id TEXT NOT NULL,
		token TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, token)
	)`,
}
