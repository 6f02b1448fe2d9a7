package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/logging"
	"github.com/matheusmosca/shop-service/internal/repository"
)

// CartItemPatch carries a partial update of a cart item.
type CartItemPatch struct {
	ProductName *string
	Quantity    *int
	Price       *decimal.Decimal
}

// CartUseCase reads and edits cart items. Items are reachable only through
// an order of the caller, and only items of a pending order can change.
type CartUseCase struct {
	repository repository.Repository
	logger     *zap.Logger
}

func NewCartUseCase(repo repository.Repository, logger *zap.Logger) *CartUseCase {
	return &CartUseCase{
		repository: repo,
		logger:     logger,
	}
}

// ListPendingItems returns the items of the caller's pending order.
func (uc *CartUseCase) ListPendingItems(ctx context.Context, callerID string) ([]domain.CartItem, error) {
	order, err := uc.repository.GetPendingOrder(ctx, callerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "no pending order found")
	}
	if err != nil {
		return nil, err
	}
	return order.CartItems, nil
}

func (uc *CartUseCase) Get(ctx context.Context, callerID, id string) (*domain.CartItem, error) {
	item, _, err := uc.ownedItem(ctx, callerID, id)
	return item, err
}

// Update applies patch and re-validates the item.
func (uc *CartUseCase) Update(ctx context.Context, callerID, id string, patch CartItemPatch) (*domain.CartItem, error) {
	item, order, err := uc.ownedItem(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if err := editable(order); err != nil {
		return nil, err
	}

	if patch.ProductName != nil {
		item.ProductName = strings.TrimSpace(*patch.ProductName)
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repository.UpdateCartItem(ctx, item); err != nil {
		return nil, err
	}

	logging.FromContext(ctx, uc.logger).Info("cart item updated", zap.String("cart_item_id", item.ID))
	return item, nil
}

func (uc *CartUseCase) Delete(ctx context.Context, callerID, id string) error {
	_, order, err := uc.ownedItem(ctx, callerID, id)
	if err != nil {
		return err
	}
	if err := editable(order); err != nil {
		return err
	}
	if err := uc.repository.DeleteCartItem(ctx, id); err != nil {
		return err
	}

	logging.FromContext(ctx, uc.logger).Info("cart item deleted", zap.String("cart_item_id", id))
	return nil
}

func (uc *CartUseCase) ownedItem(ctx context.Context, callerID, id string) (*domain.CartItem, *domain.Order, error) {
	item, err := uc.repository.GetCartItem(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if item.OrderID == nil {
		return nil, nil, domain.Errorf(domain.ErrNotFound, "cart item not found")
	}

	order, err := uc.repository.GetOrder(ctx, *item.OrderID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && order.UserID != callerID) {
		return nil, nil, domain.Errorf(domain.ErrNotFound, "cart item not found")
	}
	if err != nil {
		return nil, nil, err
	}
	return item, order, nil
}

func editable(order *domain.Order) error {
	if order.Status != domain.OrderStatusPending {
		return domain.Errorf(domain.ErrInvalidState, "cannot change items of a %s order", order.Status)
	}
	return nil
}
