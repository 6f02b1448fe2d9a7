package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// database/sql driver used by Migrate.
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Schema is the idempotent DDL of the store. The partial unique index is the
// authority for the one-pending-order-per-user rule.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id       UUID         PRIMARY KEY,
    name     VARCHAR(100) NOT NULL,
    email    VARCHAR(254) NOT NULL,
    address  VARCHAR(255),
    phone    VARCHAR(20),
    password VARCHAR(128),
    CONSTRAINT users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS orders (
    id         UUID        PRIMARY KEY,
    user_id    UUID        NOT NULL,
    status     VARCHAR(10) NOT NULL DEFAULT 'Pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT orders_user_id_fkey FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
    CONSTRAINT orders_status_check CHECK (status IN ('Pending', 'Processed', 'Cancelled'))
);

CREATE UNIQUE INDEX IF NOT EXISTS unique_pending_order_per_user
    ON orders (user_id) WHERE status = 'Pending';

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id, created_at);

CREATE TABLE IF NOT EXISTS cart_items (
    id           UUID          PRIMARY KEY,
    order_id     UUID,
    product_name VARCHAR(255)  NOT NULL,
    quantity     INTEGER       NOT NULL,
    price        NUMERIC(10,2) NOT NULL,
    CONSTRAINT cart_items_order_id_fkey FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE,
    CONSTRAINT cart_items_quantity_check CHECK (quantity > 0),
    CONSTRAINT cart_items_price_check CHECK (price >= 0)
);

CREATE INDEX IF NOT EXISTS idx_cart_items_order_id ON cart_items (order_id);
`

// Migrate applies Schema through database/sql, waiting up to attempts
// seconds for the server to accept connections.
func Migrate(ctx context.Context, dsn string, attempts int, logger *zap.Logger) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := waitFor(ctx, db.PingContext, attempts, logger); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("database schema applied")
	return nil
}

// waitFor retries ping once per second.
func waitFor(ctx context.Context, ping func(context.Context) error, attempts int, logger *zap.Logger) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		logger.Info("waiting for database", zap.Int("attempt", i+1), zap.Int("of", attempts))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}
