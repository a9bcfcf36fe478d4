package client

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"fraudengine/internal/config"
	"fraudengine/internal/util"
)

// PostgresClient wraps the reference-data and audit-record store:
// tor_exit_nodes, disposable_email_domains, asns, known_user_agents,
// blacklist entries, and fraud_checks all live here.
type PostgresClient struct {
	DB     *sql.DB
	config *config.PostgresConfig
}

func NewPostgresClient(cfg *config.Config, logger *zap.Logger) (*PostgresClient, error) {
	pgConfig := cfg.Postgres

	db, err := sql.Open("postgres", pgConfig.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(pgConfig.MaxOpenConns)
	db.SetMaxIdleConns(pgConfig.MaxIdleConns)
	db.SetConnMaxLifetime(pgConfig.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	util.Info("Postgres client initialized",
		zap.Int("max_open_conns", pgConfig.MaxOpenConns),
		zap.Int("max_idle_conns", pgConfig.MaxIdleConns),
	)

	return &PostgresClient{DB: db, config: &pgConfig}, nil
}

func (p *PostgresClient) Close() error {
	if p.DB != nil {
		if err := p.DB.Close(); err != nil {
			util.Error("failed to close postgres client", zap.Error(err))
			return err
		}
		util.Info("Postgres client closed")
	}
	return nil
}

func (p *PostgresClient) HealthCheck(ctx context.Context) error {
	if err := p.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, rolling back on any returned
// error or panic and committing otherwise. The evaluator calls it twice
// per evaluation, once for the pending-audit-row insert and once for
// the final update, so those two writes are not atomic with each other.
func (p *PostgresClient) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			util.Error("transaction rollback failed", zap.Error(rbErr))
		}
		return err
	}

	return tx.Commit()
}
