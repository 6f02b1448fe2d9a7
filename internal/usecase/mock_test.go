package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/domain"
)

// MockRepository stubs repository.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}

func (m *MockRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockRepository) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockRepository) GetPendingOrder(ctx context.Context, userID string) (*domain.Order, error) {
	args := m.Called(ctx, userID)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockRepository) HasPendingOrder(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *MockRepository) TransitionOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) DeleteOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) CreateCartItem(ctx context.Context, item *domain.CartItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockRepository) GetCartItem(ctx context.Context, id string) (*domain.CartItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*domain.CartItem)
	return item, args.Error(1)
}

func (m *MockRepository) ListCartItems(ctx context.Context, orderID string) ([]domain.CartItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]domain.CartItem)
	return items, args.Error(1)
}

func (m *MockRepository) UpdateCartItem(ctx context.Context, item *domain.CartItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockRepository) DeleteCartItem(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRepository) Close() error {
	return m.Called().Error(0)
}

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return metrics
}

func newMockedOrderUseCase(t *testing.T) (*OrderUseCase, *MockRepository) {
	repo := new(MockRepository)
	t.Cleanup(func() { repo.AssertExpectations(t) })
	return NewOrderUseCase(repo, newTestMetrics(t), zap.NewNop()), repo
}

func newPendingOrder(userID string) *domain.Order {
	return domain.NewOrder(userID)
}
