package walletdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilwallet/core/pkg/types"
)

// PostgresConfig mirrors the teacher's storage.Config shape, narrowed to
// the fields this cache needs.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultPostgresConfig returns sane localhost defaults, as the teacher
// does for its own store.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "veilwallet",
		Database: "veilwallet",
		SSLMode:  "disable",
		MaxConns: 10,
	}
}

// PostgresCache is a shared, multi-wallet-capable compact-block cache.
type PostgresCache struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS compact_blocks (
	height BIGINT PRIMARY KEY,
	payload JSONB NOT NULL
)`

// OpenPostgres connects to PostgreSQL and ensures the cache table exists.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresCache, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("walletdb: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("walletdb: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("walletdb: migrate: %w", err)
	}

	return &PostgresCache{pool: pool}, nil
}

// PutBlock implements Cache.
func (c *PostgresCache) PutBlock(ctx context.Context, block types.CompactBlock) error {
	data, err := encodeBlock(block)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO compact_blocks (height, payload) VALUES ($1, $2)
		 ON CONFLICT (height) DO UPDATE SET payload = EXCLUDED.payload`,
		block.Height, data)
	return err
}

// GetBlock implements Cache.
func (c *PostgresCache) GetBlock(ctx context.Context, height uint32) (types.CompactBlock, error) {
	var data []byte
	err := c.pool.QueryRow(ctx, `SELECT payload FROM compact_blocks WHERE height = $1`, height).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.CompactBlock{}, ErrNotFound
	}
	if err != nil {
		return types.CompactBlock{}, err
	}
	return decodeBlock(data)
}

// Close implements Cache.
func (c *PostgresCache) Close() error {
	c.pool.Close()
	return nil
}
