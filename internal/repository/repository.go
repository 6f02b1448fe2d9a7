// Package repository defines the entity store contract shared by the
// PostgreSQL and SQLite implementations.
//
// Implementations translate driver errors into the domain error kinds:
// unique violations become domain.ErrDuplicateKey (user email) or
// domain.ErrConflict (second pending order for a user), foreign key
// violations and unknown identifiers become domain.ErrNotFound.
package repository

import (
	"context"

	"github.com/matheusmosca/shop-service/internal/domain"
)

// PendingOrderConstraint is the name of the partial unique index that allows
// at most one pending order per user.
const PendingOrderConstraint = "unique_pending_order_per_user"

// Repository is the entity store.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	// DeleteUser removes the user together with its orders and their items.
	DeleteUser(ctx context.Context, id string) error

	// CreateOrder inserts the order. Inserting a second pending order for the
	// same user fails with domain.ErrConflict.
	CreateOrder(ctx context.Context, order *domain.Order) error
	// GetOrder returns the order with its cart items.
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetPendingOrder(ctx context.Context, userID string) (*domain.Order, error)
	HasPendingOrder(ctx context.Context, userID string) (bool, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// TransitionOrderStatus sets the status to `to` only if it currently is
	// `from` and reports whether the row changed.
	TransitionOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error)
	// DeleteOrder removes the order together with its cart items.
	DeleteOrder(ctx context.Context, id string) error

	CreateCartItem(ctx context.Context, item *domain.CartItem) error
	GetCartItem(ctx context.Context, id string) (*domain.CartItem, error)
	ListCartItems(ctx context.Context, orderID string) ([]domain.CartItem, error)
	UpdateCartItem(ctx context.Context, item *domain.CartItem) error
	DeleteCartItem(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}
