package usecase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the business counters recorded by the use cases.
type Metrics struct {
	ordersPlaced     metric.Int64Counter
	pendingConflicts metric.Int64Counter
	checkouts        metric.Int64Counter
	cartItemsAdded   metric.Int64Counter
}

// NewMetrics registers the counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.ordersPlaced, err = meter.Int64Counter("shop.orders.placed",
		metric.WithDescription("Orders created in Pending status")); err != nil {
		return nil, fmt.Errorf("orders placed counter: %w", err)
	}
	if m.pendingConflicts, err = meter.Int64Counter("shop.orders.pending_conflicts",
		metric.WithDescription("Order placements rejected because a Pending order exists")); err != nil {
		return nil, fmt.Errorf("pending conflicts counter: %w", err)
	}
	if m.checkouts, err = meter.Int64Counter("shop.orders.checkouts",
		metric.WithDescription("Successful checkouts")); err != nil {
		return nil, fmt.Errorf("checkouts counter: %w", err)
	}
	if m.cartItemsAdded, err = meter.Int64Counter("shop.cart_items.added",
		metric.WithDescription("Cart items attached to orders")); err != nil {
		return nil, fmt.Errorf("cart items counter: %w", err)
	}
	return &m, nil
}

func (m *Metrics) orderPlaced(ctx context.Context) {
	m.ordersPlaced.Add(ctx, 1)
}

func (m *Metrics) pendingConflict(ctx context.Context) {
	m.pendingConflicts.Add(ctx, 1)
}

func (m *Metrics) checkout(ctx context.Context, alreadyProcessed bool) {
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("already_processed", alreadyProcessed)))
}

func (m *Metrics) cartItemAdded(ctx context.Context) {
	m.cartItemsAdded.Add(ctx, 1)
}
