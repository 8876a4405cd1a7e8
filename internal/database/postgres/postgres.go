// Package postgres is the PostgreSQL appointment and settings store for
// deployments that run more than one API instance.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barbershop/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store implements the appointment and settings stores on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// Open connects to databaseURL, verifies the connection and applies the schema.
func Open(ctx context.Context, databaseURL string, logger *zerolog.Logger) (*Store, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().Str("host", cfg.ConnConfig.Host).Str("database", cfg.ConnConfig.Database).Msg("Database initialized")
	return s, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS appointments (
		id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		service TEXT NOT NULL,
		price BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shop_settings (
		shop_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		services TEXT NOT NULL DEFAULT '[]',
		working_hours TEXT NOT NULL,
		slot_duration INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shop_closures (
		id BIGSERIAL PRIMARY KEY,
		shop_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_appointments_active_slot
		ON appointments(shop_id, date, time) WHERE status <> 'cancelled'`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_customer ON appointments(shop_id, customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_status_date ON appointments(shop_id, status, date)`,
	`CREATE INDEX IF NOT EXISTS idx_closures_shop ON shop_closures(shop_id, start_date)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// PingContext verifies the pool for the readiness endpoint.
func (s *Store) PingContext(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Postgres error codes the store distinguishes.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", model.ErrTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", model.ErrConflict, pgErr.Message)
		case codeSerializationFailure, codeLockNotAvailable, codeQueryCanceled:
			return fmt.Errorf("%w: %s", model.ErrTimeout, pgErr.Message)
		}
	}
	return err
}
