package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/usecase"
)

// OrderUseCase is the order service consumed by OrderHandler.
type OrderUseCase interface {
	PlaceOrder(ctx context.Context, callerID string) (*domain.Order, error)
	Checkout(ctx context.Context, callerID, orderID string) (*usecase.CheckoutResult, error)
	CheckoutPending(ctx context.Context, callerID string) (*usecase.CheckoutResult, error)
	UpdateOrder(ctx context.Context, callerID, orderID, status string) (*domain.Order, error)
	GetOrder(ctx context.Context, callerID, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, callerID string) ([]domain.Order, error)
	DeleteOrder(ctx context.Context, callerID, orderID string) error
	AddCartItem(ctx context.Context, callerID string, in usecase.CartItemInput) (*domain.CartItem, error)
}

type OrderHandler struct {
	useCase OrderUseCase
	tracer  trace.Tracer
	logger  *zap.Logger
}

func NewOrderHandler(useCase OrderUseCase, tracer trace.Tracer, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		useCase: useCase,
		tracer:  tracer,
		logger:  logger,
	}
}

// Create places a new pending order for the caller.
func (h *OrderHandler) Create(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "place_order")
	defer span.End()

	callerID := caller(c).ID
	span.SetAttributes(attribute.String("user_id", callerID))

	order, err := h.useCase.PlaceOrder(ctx, callerID)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) List(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_orders")
	defer span.End()

	orders, err := h.useCase.ListOrders(ctx, caller(c).ID)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Get(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_order")
	defer span.End()

	id, ok := pathID(c, "order")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("order_id", id))

	order, err := h.useCase.GetOrder(ctx, caller(c).ID, id)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Update changes the order status.
func (h *OrderHandler) Update(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "update_order")
	defer span.End()

	id, ok := pathID(c, "order")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("order_id", id))

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, "invalid request body")
		return
	}
	if req.Status == nil {
		badRequest(c, span, "status is required")
		return
	}

	order, err := h.useCase.UpdateOrder(ctx, caller(c).ID, id, *req.Status)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) Delete(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "delete_order")
	defer span.End()

	id, ok := pathID(c, "order")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("order_id", id))

	if err := h.useCase.DeleteOrder(ctx, caller(c).ID, id); err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Checkout processes the order named in the path.
func (h *OrderHandler) Checkout(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "checkout_order")
	defer span.End()

	id, ok := pathID(c, "order")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("order_id", id))

	res, err := h.useCase.Checkout(ctx, caller(c).ID, id)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	h.writeCheckout(c, span, res)
}

// CheckoutPending processes the caller's pending order.
func (h *OrderHandler) CheckoutPending(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "checkout_pending_order")
	defer span.End()

	res, err := h.useCase.CheckoutPending(ctx, caller(c).ID)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	h.writeCheckout(c, span, res)
}

func (h *OrderHandler) writeCheckout(c *gin.Context, span trace.Span, res *usecase.CheckoutResult) {
	span.SetAttributes(
		attribute.String("order_id", res.Order.ID),
		attribute.Bool("already_processed", res.AlreadyProcessed),
	)
	c.JSON(http.StatusOK, CheckoutResponse{
		Message: res.Message,
		Order:   toOrderResponse(res.Order),
	})
}

// pathID reads the :id parameter in canonical form. A value that is not a
// UUID cannot name an existing entity and is answered with 404.
func pathID(c *gin.Context, what string) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return "", false
	}
	return id.String(), true
}
