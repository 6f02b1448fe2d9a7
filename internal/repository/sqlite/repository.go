// Package sqlite provides a SQLite-backed implementation of
// repository.Repository, used for single-node deployments and tests.
//
// The store keeps a single connection: SQLite has one writer at a time and
// the partial unique index on orders is checked inside that writer.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	// Pure-Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/repository"
)

// Repository is the SQLite implementation of repository.Repository.
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/shop.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const q = `
		INSERT INTO users (id, name, email, address, phone, password)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q, user.ID, user.Name, user.Email, user.Address, user.Phone, user.PasswordHash)
	return wrap("create user", err)
}

func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT id, name, email, address, phone, password FROM users WHERE id = ?`

	var u domain.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.Phone, &u.PasswordHash)
	if err != nil {
		return nil, notFound(wrap("get user", err), "user")
	}
	return &u, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	const q = `SELECT id, name, email, address, phone, password FROM users ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, wrap("list users", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.Phone, &u.PasswordHash); err != nil {
			return nil, wrap("scan user", err)
		}
		users = append(users, u)
	}
	return users, wrap("list users", rows.Err())
}

func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	const q = `
		UPDATE users
		SET name = ?, email = ?, address = ?, phone = ?, password = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q, user.Name, user.Email, user.Address, user.Phone, user.PasswordHash, user.ID)
	if err != nil {
		return wrap("update user", err)
	}
	return affected(res, "user")
}

func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return wrap("delete user", err)
	}
	return affected(res, "user")
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	const q = `
		INSERT INTO orders (id, user_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		order.ID,
		order.UserID,
		string(order.Status),
		formatTime(order.CreatedAt),
		formatTime(order.UpdatedAt),
	)
	return notFound(wrap("create order", err), "user")
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	const q = `SELECT id, user_id, status, created_at, updated_at FROM orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(wrap("get order", err), "order")
	}
	if order.CartItems, err = r.ListCartItems(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) GetPendingOrder(ctx context.Context, userID string) (*domain.Order, error) {
	const q = `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders WHERE user_id = ? AND status = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, q, userID, string(domain.OrderStatusPending)))
	if err != nil {
		return nil, notFound(wrap("get pending order", err), "pending order")
	}
	if order.CartItems, err = r.ListCartItems(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) HasPendingOrder(ctx context.Context, userID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM orders WHERE user_id = ? AND status = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, q, userID, string(domain.OrderStatusPending)).Scan(&exists); err != nil {
		return false, wrap("check pending order", err)
	}
	return exists, nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders WHERE user_id = ?
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, wrap("list orders", err)
	}

	orders := []domain.Order{}
	index := map[string]int{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, wrap("scan order", err)
		}
		index[order.ID] = len(orders)
		orders = append(orders, *order)
	}
	// The single connection must be released before the next query.
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap("list orders", err)
	}

	const itemsQ = `
		SELECT ci.id, ci.order_id, ci.product_name, ci.quantity, ci.price
		FROM cart_items ci
		JOIN orders o ON o.id = ci.order_id
		WHERE o.user_id = ?
		ORDER BY ci.product_name, ci.id`

	itemRows, err := r.db.QueryContext(ctx, itemsQ, userID)
	if err != nil {
		return nil, wrap("list cart items", err)
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
	return orders, wrap("list cart items", itemRows.Err())
}

func (r *Repository) TransitionOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	const q = `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	res, err := r.db.ExecContext(ctx, q, string(to), formatTime(domain.Now()), id, string(from))
	if err != nil {
		return false, wrap("update order status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("update order status", err)
	}
	return n == 1, nil
}

func (r *Repository) DeleteOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return wrap("delete order", err)
	}
	return affected(res, "order")
}

func (r *Repository) CreateCartItem(ctx context.Context, item *domain.CartItem) error {
	const q = `
		INSERT INTO cart_items (id, order_id, product_name, quantity, price)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q, item.ID, item.OrderID, item.ProductName, item.Quantity, item.Price.StringFixed(2))
	return notFound(wrap("create cart item", err), "order")
}

func (r *Repository) GetCartItem(ctx context.Context, id string) (*domain.CartItem, error) {
	const q = `SELECT id, order_id, product_name, quantity, price FROM cart_items WHERE id = ?`

	item, err := scanCartItem(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err, "cart item")
	}
	return item, nil
}

func (r *Repository) ListCartItems(ctx context.Context, orderID string) ([]domain.CartItem, error) {
	const q = `
		SELECT id, order_id, product_name, quantity, price
		FROM cart_items WHERE order_id = ?
		ORDER BY product_name, id`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, wrap("list cart items", err)
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
	return items, wrap("list cart items", rows.Err())
}

func (r *Repository) UpdateCartItem(ctx context.Context, item *domain.CartItem) error {
	const q = `
		UPDATE cart_items
		SET order_id = ?, product_name = ?, quantity = ?, price = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q, item.OrderID, item.ProductName, item.Quantity, item.Price.StringFixed(2), item.ID)
	if err != nil {
		return notFound(wrap("update cart item", err), "order")
	}
	return affected(res, "cart item")
}

func (r *Repository) DeleteCartItem(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, id)
	if err != nil {
		return wrap("delete cart item", err)
	}
	return affected(res, "cart item")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o                    domain.Order
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.CartItems = []domain.CartItem{}
	return &o, nil
}

func scanCartItem(row scanner) (*domain.CartItem, error) {
	var (
		item  domain.CartItem
		price string
	)
	if err := row.Scan(&item.ID, &item.OrderID, &item.ProductName, &item.Quantity, &price); err != nil {
		return nil, wrap("scan cart item", err)
	}

	var err error
	if item.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("sqlite: parse price %q: %w", price, err)
	}
	return &item, nil
}

func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return domain.Errorf(domain.ErrNotFound, "%s not found", what)
	}
	return nil
}
