package sqlite

import (
	"database/sql"
	"fmt"
)

// schema mirrors the PostgreSQL DDL. Timestamps are fixed-width UTC TEXT so
// they sort lexically; prices are TEXT to keep the exact decimal.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id       TEXT PRIMARY KEY,
    name     TEXT NOT NULL,
    email    TEXT NOT NULL UNIQUE,
    address  TEXT,
    phone    TEXT,
    password TEXT
);

CREATE TABLE IF NOT EXISTS orders (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    status     TEXT NOT NULL DEFAULT 'Pending'
               CHECK (status IN ('Pending', 'Processed', 'Cancelled')),
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- At most one pending order per user.
CREATE UNIQUE INDEX IF NOT EXISTS unique_pending_order_per_user
    ON orders (user_id) WHERE status = 'Pending';

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id, created_at);

CREATE TABLE IF NOT EXISTS cart_items (
    id           TEXT PRIMARY KEY,
    order_id     TEXT REFERENCES orders (id) ON DELETE CASCADE,
    product_name TEXT    NOT NULL,
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    price        TEXT    NOT NULL CHECK (CAST(price AS REAL) >= 0)
);

CREATE INDEX IF NOT EXISTS idx_cart_items_order_id ON cart_items (order_id);
`

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}
