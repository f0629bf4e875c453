package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB owns the connection pool shared by the depth map repository and
// migrations.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL. maxConns caps the pool when positive; the
// island tool passes its worker count so every loader can hold a conn.
func New(ctx context.Context, dsn string, maxConns int) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (d *DB) Close() {
	d.pool.Close()
}

func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// Migrate applies pending migrations over the pool.
func (d *DB) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.pool)
}

// DepthMaps returns a repository over the pool.
func (d *DB) DepthMaps() *DepthMapRepository {
	return NewDepthMapRepository(d.pool)
}
