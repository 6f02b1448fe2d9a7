package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/usecase"
)

// CartUseCase is the cart item service consumed by CartHandler.
type CartUseCase interface {
	ListPendingItems(ctx context.Context, callerID string) ([]domain.CartItem, error)
	Get(ctx context.Context, callerID, id string) (*domain.CartItem, error)
	Update(ctx context.Context, callerID, id string, patch usecase.CartItemPatch) (*domain.CartItem, error)
	Delete(ctx context.Context, callerID, id string) error
}

// CartItemAdder attaches new items to orders.
type CartItemAdder interface {
	AddCartItem(ctx context.Context, callerID string, in usecase.CartItemInput) (*domain.CartItem, error)
}

type CartHandler struct {
	useCase CartUseCase
	orders  CartItemAdder
	tracer  trace.Tracer
	logger  *zap.Logger
}

func NewCartHandler(useCase CartUseCase, orders CartItemAdder, tracer trace.Tracer, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		useCase: useCase,
		orders:  orders,
		tracer:  tracer,
		logger:  logger,
	}
}

func (h *CartHandler) Create(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "add_cart_item")
	defer span.End()

	var req CreateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, "invalid request body")
		return
	}
	if req.Price == nil {
		badRequest(c, span, "price is required")
		return
	}

	item, err := h.orders.AddCartItem(ctx, caller(c).ID, usecase.CartItemInput{
		OrderID:     req.OrderID,
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		Price:       *req.Price,
	})
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("cart_item_id", item.ID),
		attribute.String("order_id", *item.OrderID),
	)
	c.JSON(http.StatusCreated, toCartItemResponse(item))
}

// List returns the items of the caller's pending order.
func (h *CartHandler) List(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_cart_items")
	defer span.End()

	items, err := h.useCase.ListPendingItems(ctx, caller(c).ID)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}

	resp := make([]CartItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toCartItemResponse(&items[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) Get(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_cart_item")
	defer span.End()

	id, ok := pathID(c, "cart item")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("cart_item_id", id))

	item, err := h.useCase.Get(ctx, caller(c).ID, id)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	c.JSON(http.StatusOK, toCartItemResponse(item))
}

func (h *CartHandler) Update(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "update_cart_item")
	defer span.End()

	id, ok := pathID(c, "cart item")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("cart_item_id", id))

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, "invalid request body")
		return
	}

	item, err := h.useCase.Update(ctx, caller(c).ID, id, usecase.CartItemPatch{
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		Price:       req.Price,
	})
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	c.JSON(http.StatusOK, toCartItemResponse(item))
}

func (h *CartHandler) Delete(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "delete_cart_item")
	defer span.End()

	id, ok := pathID(c, "cart item")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("cart_item_id", id))

	if err := h.useCase.Delete(ctx, caller(c).ID, id); err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	c.Status(http.StatusNoContent)
}
