// Package postgres implements the durable stores of the engine on
// PostgreSQL: enrollments, payments, certificates, achievements and the
// moderation flags of courses. The schema is owned by the platform; this
// package only reads and writes rows.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnhub/learnhub-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrConnectionClosed indicates the connection pool is closed.
	ErrConnectionClosed = errors.New("postgres: connection pool is closed")

	// ErrTransactionFailed indicates a transaction failure.
	ErrTransactionFailed = errors.New("postgres: transaction failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION POOL
// ══════════════════════════════════════════════════════════════════════════════

// Config holds PostgreSQL connection configuration.
type Config struct {
	// URL takes precedence over the discrete fields when set.
	URL string

	Host     string
	Port     int
	Database string
	User     string
	Password string

	// SSLMode is one of disable, require, verify-ca, verify-full.
	SSLMode string

	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Port:              5432,
		Database:          "learnhub",
		User:              "postgres",
		SSLMode:           "disable",
		MaxConns:          10,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    10 * time.Second,
	}
}

// DSN returns the connection string.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// PoolConfig returns the pgxpool configuration.
func (c Config) PoolConfig() (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse connection string: %w", err)
	}

	if c.MaxConns > 0 {
		config.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		config.MinConns = c.MinConns
	}
	if c.MaxConnLifetime > 0 {
		config.MaxConnLifetime = c.MaxConnLifetime
	}
	if c.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = c.MaxConnIdleTime
	}
	if c.HealthCheckPeriod > 0 {
		config.HealthCheckPeriod = c.HealthCheckPeriod
	}
	return config, nil
}

// Connection wraps the pool with a circuit breaker shared by every store.
type Connection struct {
	pool    *pgxpool.Pool
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewConnection creates the pool and verifies it with a ping.
func NewConnection(ctx context.Context, cfg Config, logger *slog.Logger) (*Connection, error) {
	poolConfig, err := cfg.PoolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "postgres")

	return &Connection{
		pool:   pool,
		logger: logger,
		breaker: circuitbreaker.DatabaseBreaker(
			func(name string, from, to circuitbreaker.State) {
				logger.Warn("circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
			circuitbreaker.WithIsFailure(IsInfrastructureError),
		),
	}, nil
}

// Pool returns the underlying pool.
func (c *Connection) Pool() *pgxpool.Pool {
	return c.pool
}

// Close closes the pool. Closing twice is a no-op.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.pool.Close()
}

// Ping checks if the database connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}
	return c.pool.Ping(ctx)
}

// HealthStatus contains database health information.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Error         string        `json:"error,omitempty"`
	Breaker       string        `json:"breaker"`
	PingLatency   time.Duration `json:"ping_latency"`
	TotalConns    int32         `json:"total_conns"`
	IdleConns     int32         `json:"idle_conns"`
	AcquiredConns int32         `json:"acquired_conns"`
	MaxConns      int32         `json:"max_conns"`
}

// Health pings the database and reports pool statistics.
func (c *Connection) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{Breaker: c.breaker.State().String()}

	start := time.Now()
	if err := c.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status
	}
	status.PingLatency = time.Since(start)

	stats := c.pool.Stat()
	status.TotalConns = stats.TotalConns()
	status.IdleConns = stats.IdleConns()
	status.AcquiredConns = stats.AcquiredConns()
	status.MaxConns = stats.MaxConns()
	status.Healthy = true
	return status
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// Querier is implemented by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// run executes fn against the pool through the breaker.
func (c *Connection) run(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrConnectionClosed
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return fn(ctx, c.pool)
	})
}

// WithTx executes fn within a read-committed transaction through the
// breaker. The transaction is committed if fn returns nil.
func (c *Connection) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return c.run(ctx, func(ctx context.Context, _ Querier) error {
		tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}

		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback(ctx)
				panic(p)
			}
		}()

		if err := fn(ctx, tx); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit error: %w", err)
		}
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// IsUniqueViolation checks if the error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsForeignKeyViolation checks if the error is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// IsNoRows checks if the error is a "no rows" error.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsInfrastructureError reports whether err says something about the health
// of the database rather than about the data. Constraint violations, empty
// results and caller cancellation do not trip the breaker.
func IsInfrastructureError(err error) bool {
	switch {
	case err == nil:
		return false
	case IsNoRows(err), errors.Is(err, context.Canceled):
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 23: integrity constraint violation.
		return len(pgErr.Code) < 2 || pgErr.Code[:2] != "23"
	}
	return true
}
