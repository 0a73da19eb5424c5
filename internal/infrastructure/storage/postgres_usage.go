package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
)

const usageSchema = `
CREATE TABLE IF NOT EXISTS usage_runs (
	user_id    TEXT PRIMARY KEY,
	runs       INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresUsageTracker учёт запусков анализа в Postgres.
type PostgresUsageTracker struct {
	pool    *pgxpool.Pool
	maxRuns int
}

// NewPostgresUsageTracker подключается к базе и создаёт таблицу учёта.
func NewPostgresUsageTracker(ctx context.Context, url string, maxRuns int) (*PostgresUsageTracker, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := pool.Exec(ctx, usageSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create usage table: %w", err)
	}
	return &PostgresUsageTracker{pool: pool, maxRuns: maxRuns}, nil
}

// Reserve увеличивает счётчик одним условным upsert. Если лимит исчерпан,
// строка не обновляется и RETURNING ничего не отдаёт.
func (t *PostgresUsageTracker) Reserve(ctx context.Context, userID string) error {
	if t.maxRuns <= 0 {
		return fmt.Errorf("%w: runs are disabled", entity.ErrQuotaExceeded)
	}

	var used int
	err := t.pool.QueryRow(ctx, `
INSERT INTO usage_runs (user_id, runs) VALUES ($1, 1)
ON CONFLICT (user_id) DO UPDATE SET runs = usage_runs.runs + 1, updated_at = now()
WHERE usage_runs.runs < $2
RETURNING runs`, userID, t.maxRuns).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %d of %d runs used", entity.ErrQuotaExceeded, t.maxRuns, t.maxRuns)
	}
	if err != nil {
		return fmt.Errorf("reserve usage: %w", err)
	}
	return nil
}

func (t *PostgresUsageTracker) Release(ctx context.Context, userID string) error {
	_, err := t.pool.Exec(ctx, `
UPDATE usage_runs SET runs = GREATEST(runs - 1, 0), updated_at = now()
WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("release usage: %w", err)
	}
	return nil
}

// Close закрывает пул соединений.
func (t *PostgresUsageTracker) Close() {
	t.pool.Close()
}

var _ port.UsageTracker = (*PostgresUsageTracker)(nil)
