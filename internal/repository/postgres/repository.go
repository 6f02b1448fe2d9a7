package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/repository"
)

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
	// Attempts is how many times Open pings before giving up.
	Attempts int
}

// Repository implements repository.Repository on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

var _ repository.Repository = (*Repository)(nil)

// NewRepository wraps an existing pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Open creates a pool for dsn and waits for the database to be ready.
func Open(ctx context.Context, dsn string, cfg PoolConfig, logger *zap.Logger) (*Repository, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		config.MinConns = cfg.MinConns
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := waitFor(ctx, pool.Ping, max(cfg.Attempts, 1), logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres", zap.Int32("max_conns", config.MaxConns))
	return NewRepository(pool), nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) Close() error {
	r.db.Close()
	return nil
}

// CreateUser inserts a user. A taken email yields domain.ErrDuplicateKey.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, name, email, address, phone, password)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Name, user.Email, user.Address, user.Phone, user.PasswordHash)
	return wrap("failed to create user", err)
}

func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `
		SELECT id::text, name, email, address, phone, password
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.Phone, &u.PasswordHash)
	if err != nil {
		return nil, notFound(wrap("failed to get user", err), "user")
	}
	return &u, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, name, email, address, phone, password
		FROM users ORDER BY name, id
	`)
	if err != nil {
		return nil, wrap("failed to list users", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.Phone, &u.PasswordHash); err != nil {
			return nil, wrap("failed to scan user", err)
		}
		users = append(users, u)
	}
	return users, wrap("failed to list users", rows.Err())
}

func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET name = $2, email = $3, address = $4, phone = $5, password = $6
		WHERE id = $1
	`, user.ID, user.Name, user.Email, user.Address, user.Phone, user.PasswordHash)
	if err != nil {
		return notFound(wrap("failed to update user", err), "user")
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "user not found")
	}
	return nil
}

// DeleteUser removes the user; orders and cart items go with it through
// ON DELETE CASCADE.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "users", "user", id)
}

// CreateOrder is a single INSERT guarded by unique_pending_order_per_user, so
// concurrent callers for the same user cannot both create a pending order.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, order.ID, order.UserID, string(order.Status), order.CreatedAt, order.UpdatedAt)
	return wrap("failed to create order", err)
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, `
		SELECT id::text, user_id::text, status, created_at, updated_at
		FROM orders WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(wrap("failed to get order", err), "order")
	}

	if order.CartItems, err = r.ListCartItems(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) GetPendingOrder(ctx context.Context, userID string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, `
		SELECT id::text, user_id::text, status, created_at, updated_at
		FROM orders WHERE user_id = $1 AND status = $2
	`, userID, string(domain.OrderStatusPending)))
	if err != nil {
		return nil, notFound(wrap("failed to get pending order", err), "pending order")
	}

	if order.CartItems, err = r.ListCartItems(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) HasPendingOrder(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE user_id = $1 AND status = $2)",
		userID, string(domain.OrderStatusPending),
	).Scan(&exists)
	if err != nil {
		return false, wrap("failed to check pending order", err)
	}
	return exists, nil
}

// ListOrdersByUser returns the user's orders, oldest first, each with its
// cart items.
func (r *Repository) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, user_id::text, status, created_at, updated_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, wrap("failed to list orders", err)
	}

	orders := []domain.Order{}
	index := map[string]int{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, wrap("failed to scan order", err)
		}
		index[order.ID] = len(orders)
		orders = append(orders, *order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap("failed to list orders", err)
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT ci.id::text, ci.order_id::text, ci.product_name, ci.quantity, ci.price::text
		FROM cart_items ci
		JOIN orders o ON o.id = ci.order_id
		WHERE o.user_id = $1
		ORDER BY ci.product_name, ci.id
	`, userID)
	if err != nil {
		return nil, wrap("failed to list cart items", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item, err := scanCartItem(itemRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[*item.OrderID]; ok {
			orders[i].CartItems = append(orders[i].CartItems, *item)
		}
	}
	return orders, wrap("failed to list cart items", itemRows.Err())
}

// TransitionOrderStatus is a compare-and-swap on the status column.
func (r *Repository) TransitionOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to), domain.Now())
	if err != nil {
		return false, notFound(wrap("failed to update order status", err), "order")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) DeleteOrder(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "orders", "order", id)
}

func (r *Repository) CreateCartItem(ctx context.Context, item *domain.CartItem) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_items (id, order_id, product_name, quantity, price)
		VALUES ($1, $2, $3, $4, $5::text::numeric)
	`, item.ID, item.OrderID, item.ProductName, item.Quantity, item.Price.StringFixed(2))
	return wrap("failed to create cart item", err)
}

func (r *Repository) GetCartItem(ctx context.Context, id string) (*domain.CartItem, error) {
	item, err := scanCartItem(r.db.QueryRow(ctx, `
		SELECT id::text, order_id::text, product_name, quantity, price::text
		FROM cart_items WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "cart item")
	}
	return item, nil
}

func (r *Repository) ListCartItems(ctx context.Context, orderID string) ([]domain.CartItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, order_id::text, product_name, quantity, price::text
		FROM cart_items WHERE order_id = $1
		ORDER BY product_name, id
	`, orderID)
	if err != nil {
		return nil, wrap("failed to list cart items", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, wrap("failed to list cart items", rows.Err())
}

func (r *Repository) UpdateCartItem(ctx context.Context, item *domain.CartItem) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE cart_items
		SET order_id = $2, product_name = $3, quantity = $4, price = $5::text::numeric
		WHERE id = $1
	`, item.ID, item.OrderID, item.ProductName, item.Quantity, item.Price.StringFixed(2))
	if err != nil {
		return notFound(wrap("failed to update cart item", err), "cart item")
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "cart item not found")
	}
	return nil
}

func (r *Repository) DeleteCartItem(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "cart_items", "cart item", id)
}

// deleteByID is only called with constant table names.
func (r *Repository) deleteByID(ctx context.Context, table, what, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return notFound(wrap("failed to delete "+what, err), what)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "%s not found", what)
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	o.CartItems = []domain.CartItem{}
	return &o, nil
}

func scanCartItem(row pgx.Row) (*domain.CartItem, error) {
	var (
		item  domain.CartItem
		price string
	)
	if err := row.Scan(&item.ID, &item.OrderID, &item.ProductName, &item.Quantity, &price); err != nil {
		return nil, wrap("failed to scan cart item", err)
	}

	var err error
	if item.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("failed to parse price %q: %w", price, err)
	}
	return &item, nil
}
