package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/config"
	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
)

// DB is the subset of pgxpool.Pool the repository uses. Every Begin checks
// out its own connection, so concurrent consumer loops never share one.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Client wraps the PostgreSQL connection pool
type Client struct {
	pool   *pgxpool.Pool
	config *config.Postgres
	log    *zap.Logger
}

// NewClient creates a new PostgreSQL client with the given configuration
func NewClient(ctx context.Context, cfg *config.Postgres, log *zap.Logger) (*Client, error) {
	log.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Int32("max_conns", cfg.MaxConns))

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL DSN: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("Failed to create PostgreSQL pool", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to create PostgreSQL pool: %w", domain.ErrConnectionLost, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		log.Error("Failed to ping PostgreSQL", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to ping PostgreSQL: %w", domain.ErrConnectionLost, err)
	}

	log.Info("PostgreSQL connection established successfully")

	return &Client{pool: pool, config: cfg, log: log}, nil
}

// DB returns the underlying pool
func (c *Client) DB() DB {
	return c.pool
}

// Close closes the pool, waiting for checked-out connections to be returned
func (c *Client) Close() error {
	c.log.Info("Closing PostgreSQL pool")
	c.pool.Close()
	c.log.Info("PostgreSQL pool closed successfully")
	return nil
}
