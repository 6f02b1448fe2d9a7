// Package usecase holds the business rules of the shop: the order state
// machine, the one-pending-order-per-user rule and the owner checks on users,
// orders and cart items.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/logging"
	"github.com/matheusmosca/shop-service/internal/repository"
)

const (
	MessageOrderProcessed        = "Order processed successfully."
	MessageOrderAlreadyProcessed = "Order already processed."

	// maxCheckoutAttempts bounds the re-reads after a lost status swap.
	maxCheckoutAttempts = 3
)

// CheckoutResult is the outcome of a successful checkout.
type CheckoutResult struct {
	Order            *domain.Order
	AlreadyProcessed bool
	Message          string
}

// CartItemInput carries the fields of a new cart item. A nil OrderID attaches
// the item to the caller's pending order, creating it when needed.
type CartItemInput struct {
	OrderID     *string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// OrderUseCase implements order placement, checkout and the order lifecycle.
type OrderUseCase struct {
	repository repository.Repository
	metrics    *Metrics
	logger     *zap.Logger
}

func NewOrderUseCase(repo repository.Repository, metrics *Metrics, logger *zap.Logger) *OrderUseCase {
	return &OrderUseCase{
		repository: repo,
		metrics:    metrics,
		logger:     logger,
	}
}

// PlaceOrder creates a pending order for the caller. It fails with
// domain.ErrConflict when the caller already has one, whether the pre-check
// or the store's unique index catches it.
func (uc *OrderUseCase) PlaceOrder(ctx context.Context, callerID string) (*domain.Order, error) {
	log := logging.FromContext(ctx, uc.logger).With(zap.String("user_id", callerID))

	exists, err := uc.repository.HasPendingOrder(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("checking pending order: %w", err)
	}
	if exists {
		uc.metrics.pendingConflict(ctx)
		log.Info("order rejected, pending order exists")
		return nil, domain.Errorf(domain.ErrConflict, "user already has a pending order")
	}

	order := domain.NewOrder(callerID)
	if err := uc.repository.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			uc.metrics.pendingConflict(ctx)
			log.Info("order rejected by pending order constraint")
		}
		return nil, err
	}

	uc.metrics.orderPlaced(ctx)
	log.Info("order placed", zap.String("order_id", order.ID))
	return order, nil
}

// Checkout moves the caller's order from Pending to Processed. Checking out a
// processed order again succeeds with AlreadyProcessed set.
func (uc *OrderUseCase) Checkout(ctx context.Context, callerID, orderID string) (*CheckoutResult, error) {
	order, err := uc.ownedOrder(ctx, callerID, orderID)
	if err != nil {
		return nil, err
	}
	return uc.checkout(ctx, order)
}

// CheckoutPending checks out the caller's pending order.
func (uc *OrderUseCase) CheckoutPending(ctx context.Context, callerID string) (*CheckoutResult, error) {
	order, err := uc.repository.GetPendingOrder(ctx, callerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrInvalidState, "no pending order found")
	}
	if err != nil {
		return nil, err
	}
	return uc.checkout(ctx, order)
}

func (uc *OrderUseCase) checkout(ctx context.Context, order *domain.Order) (*CheckoutResult, error) {
	log := logging.FromContext(ctx, uc.logger).With(zap.String("order_id", order.ID))

	for attempt := 0; attempt < maxCheckoutAttempts; attempt++ {
		alreadyProcessed, err := order.Checkout()
		if err != nil {
			return nil, err
		}
		if alreadyProcessed {
			uc.metrics.checkout(ctx, true)
			log.Info("order already processed")
			return &CheckoutResult{Order: order, AlreadyProcessed: true, Message: MessageOrderAlreadyProcessed}, nil
		}

		swapped, err := uc.repository.TransitionOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusProcessed)
		if err != nil {
			return nil, fmt.Errorf("processing order: %w", err)
		}
		if swapped {
			uc.metrics.checkout(ctx, false)
			log.Info("order processed")
			return &CheckoutResult{Order: order, Message: MessageOrderProcessed}, nil
		}

		// Someone else moved the order; decide again on its fresh status.
		if order, err = uc.repository.GetOrder(ctx, order.ID); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("order %s changed status %d times during checkout", order.ID, maxCheckoutAttempts)
}

// UpdateOrder applies a status change through the order state machine.
func (uc *OrderUseCase) UpdateOrder(ctx context.Context, callerID, orderID, status string) (*domain.Order, error) {
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := uc.ownedOrder(ctx, callerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == next {
		return order, nil
	}

	switch next {
	case domain.OrderStatusProcessed:
		res, err := uc.checkout(ctx, order)
		if err != nil {
			return nil, err
		}
		return res.Order, nil
	case domain.OrderStatusCancelled:
		return uc.cancel(ctx, order)
	}
	return nil, order.TransitionTo(next)
}

func (uc *OrderUseCase) cancel(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	from := order.Status
	if err := order.Cancel(); err != nil {
		return nil, err
	}

	swapped, err := uc.repository.TransitionOrderStatus(ctx, order.ID, from, domain.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancelling order: %w", err)
	}
	if !swapped {
		current, err := uc.repository.GetOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if current.Status != domain.OrderStatusCancelled {
			return nil, domain.Errorf(domain.ErrInvalidState, "cannot move order from %s to %s", current.Status, domain.OrderStatusCancelled)
		}
		return current, nil
	}

	logging.FromContext(ctx, uc.logger).Info("order cancelled", zap.String("order_id", order.ID))
	return order, nil
}

// GetOrder returns the caller's order with its cart items.
func (uc *OrderUseCase) GetOrder(ctx context.Context, callerID, orderID string) (*domain.Order, error) {
	return uc.ownedOrder(ctx, callerID, orderID)
}

// ListOrders returns every order of the caller.
func (uc *OrderUseCase) ListOrders(ctx context.Context, callerID string) ([]domain.Order, error) {
	return uc.repository.ListOrdersByUser(ctx, callerID)
}

// DeleteOrder removes the caller's order and its cart items.
func (uc *OrderUseCase) DeleteOrder(ctx context.Context, callerID, orderID string) error {
	if _, err := uc.ownedOrder(ctx, callerID, orderID); err != nil {
		return err
	}
	if err := uc.repository.DeleteOrder(ctx, orderID); err != nil {
		return err
	}

	logging.FromContext(ctx, uc.logger).Info("order deleted", zap.String("order_id", orderID))
	return nil
}

// AddCartItem validates the item and attaches it to a pending order of the
// caller. Nothing is written when validation fails.
func (uc *OrderUseCase) AddCartItem(ctx context.Context, callerID string, in CartItemInput) (*domain.CartItem, error) {
	item, err := domain.NewCartItem(nil, in.ProductName, in.Quantity, in.Price)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	if in.OrderID != nil {
		orderID, perr := uuid.Parse(*in.OrderID)
		if perr != nil {
			return nil, domain.Errorf(domain.ErrNotFound, "order not found")
		}
		if order, err = uc.ownedOrder(ctx, callerID, orderID.String()); err != nil {
			return nil, err
		}
		if order.Status != domain.OrderStatusPending {
			return nil, domain.Errorf(domain.ErrInvalidState, "cannot add items to a %s order", order.Status)
		}
	} else if order, err = uc.pendingOrder(ctx, callerID); err != nil {
		return nil, err
	}

	item.OrderID = &order.ID
	if err := uc.repository.CreateCartItem(ctx, item); err != nil {
		return nil, err
	}

	uc.metrics.cartItemAdded(ctx)
	logging.FromContext(ctx, uc.logger).Info("cart item added",
		zap.String("order_id", order.ID),
		zap.String("cart_item_id", item.ID),
	)
	return item, nil
}

// pendingOrder returns the caller's pending order, creating it if there is
// none. A concurrent creator winning the unique index is not an error.
func (uc *OrderUseCase) pendingOrder(ctx context.Context, callerID string) (*domain.Order, error) {
	order, err := uc.repository.GetPendingOrder(ctx, callerID)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return order, err
	}

	order = domain.NewOrder(callerID)
	err = uc.repository.CreateOrder(ctx, order)
	switch {
	case err == nil:
		uc.metrics.orderPlaced(ctx)
		return order, nil
	case errors.Is(err, domain.ErrConflict):
		return uc.repository.GetPendingOrder(ctx, callerID)
	}
	return nil, err
}

// ownedOrder hides orders of other users behind domain.ErrNotFound.
func (uc *OrderUseCase) ownedOrder(ctx context.Context, callerID, orderID string) (*domain.Order, error) {
	order, err := uc.repository.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != callerID {
		return nil, domain.Errorf(domain.ErrNotFound, "order not found")
	}
	return order, nil
}
