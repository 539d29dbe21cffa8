// Package postgres opens a pooled lib/pq connection from config and exposes
// the handle used by the SQL content store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/stockguides/site/pkg/config"
)

type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Exec runs a statement outside any transaction, e.g. schema setup.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := c.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}
