package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/repository/sqlite"
	"github.com/matheusmosca/shop-service/internal/usecase"
)

type errorBody struct {
	Error string `json:"error"`
}

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
	client *resty.Client
	repo   *sqlite.Repository
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	domain.PasswordCost = bcrypt.MinCost
}

func (s *RouterSuite) SetupTest() {
	repo, err := sqlite.Open(filepath.Join(s.T().TempDir(), "shop.db"))
	s.Require().NoError(err)
	s.repo = repo

	logger := zap.NewNop()
	metrics, err := usecase.NewMetrics(noop.NewMeterProvider().Meter("test"))
	s.Require().NoError(err)

	router := NewRouter(RouterConfig{
		ServiceName: "shop-service",
		Users:       usecase.NewUserUseCase(repo, logger),
		Orders:      usecase.NewOrderUseCase(repo, metrics, logger),
		Carts:       usecase.NewCartUseCase(repo, logger),
		Store:       repo,
		Tracer:      tracenoop.NewTracerProvider().Tracer("test"),
		Logger:      logger,
	})

	s.server = httptest.NewServer(router)
	s.client = resty.New().SetBaseURL(s.server.URL)
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
	s.NoError(s.repo.Close())
}

func (s *RouterSuite) createUser(email string) UserResponse {
	var user UserResponse
	resp, err := s.client.R().
		SetBody(map[string]any{"name": "Ana", "email": email, "password": "secret"}).
		SetResult(&user).
		Post("/users")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode(), resp.String())
	return user
}

func (s *RouterSuite) as(userID string) *resty.Request {
	return s.client.R().SetHeader(HeaderUserID, userID)
}

func (s *RouterSuite) TestHealth() {
	resp, err := s.client.R().Get("/health")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode())
	s.NotEmpty(resp.Header().Get(HeaderRequestID))
}

func (s *RouterSuite) TestRequestIDIsEchoed() {
	resp, err := s.client.R().SetHeader(HeaderRequestID, "req-1").Get("/health")
	s.Require().NoError(err)
	s.Equal("req-1", resp.Header().Get(HeaderRequestID))
}

func (s *RouterSuite) TestPlaceCheckoutPlaceAgain() {
	user := s.createUser("ana@example.com")

	var order OrderResponse
	resp, err := s.as(user.ID).SetResult(&order).Post("/orders")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode())
	s.Equal("Pending", order.Status)
	s.Equal(user.ID, order.UserID)

	var conflict errorBody
	resp, err = s.as(user.ID).SetError(&conflict).Post("/orders")
	s.Require().NoError(err)
	s.Equal(http.StatusBadRequest, resp.StatusCode())
	s.Equal("user already has a pending order", conflict.Error)

	var checkout CheckoutResponse
	resp, err = s.as(user.ID).SetResult(&checkout).Put("/orders/" + order.ID + "/checkout")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode())
	s.Equal("Order processed successfully.", checkout.Message)
	s.Equal("Processed", checkout.Order.Status)

	resp, err = s.as(user.ID).SetResult(&checkout).Post("/orders/" + order.ID + "/checkout")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode())
	s.Equal("Order already processed.", checkout.Message)

	resp, err = s.as(user.ID).Post("/orders")
	s.Require().NoError(err)
	s.Equal(http.StatusCreated, resp.StatusCode())
}

func (s *RouterSuite) TestCartItemNestedInOrder() {
	user := s.createUser("ana@example.com")

	var order OrderResponse
	_, err := s.as(user.ID).SetResult(&order).Post("/orders")
	s.Require().NoError(err)

	var item CartItemResponse
	resp, err := s.as(user.ID).
		SetBody(map[string]any{"order_id": order.ID, "product_name": "Widget", "quantity": 2, "price": "19.99"}).
		SetResult(&item).
		Post("/cart-items")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode(), resp.String())
	s.Equal("19.99", item.Price)

	var got OrderResponse
	resp, err = s.as(user.ID).SetResult(&got).Get("/orders/" + order.ID)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode())
	s.Require().Len(got.CartItems, 1)
	s.Equal("Widget", got.CartItems[0].ProductName)
	s.Equal(2, got.CartItems[0].Quantity)
	s.Equal("19.99", got.CartItems[0].Price)
	s.Contains(resp.String(), `"price":"19.99"`)
}

func (s *RouterSuite) TestCartItemValidation() {
	user := s.createUser("ana@example.com")

	cases := map[string]map[string]any{
		"zero quantity":  {"product_name": "Widget", "quantity": 0, "price": "1.00"},
		"negative price": {"product_name": "Widget", "quantity": 1, "price": "-1"},
		"missing price":  {"product_name": "Widget", "quantity": 1},
		"missing name":   {"quantity": 1, "price": "1.00"},
		"three decimals": {"product_name": "Widget", "quantity": 1, "price": "1.005"},
		"huge quantity":  {"product_name": "Widget", "quantity": 3000000000, "price": "1.00"},
	}
	for name, body := range cases {
		s.Run(name, func() {
			resp, err := s.as(user.ID).SetBody(body).Post("/cart-items")
			s.Require().NoError(err)
			s.Equal(http.StatusBadRequest, resp.StatusCode(), resp.String())
		})
	}

	resp, err := s.as(user.ID).Get("/orders")
	s.Require().NoError(err)
	s.JSONEq(`[]`, resp.String())
}

func (s *RouterSuite) TestCheckoutPendingRoute() {
	user := s.createUser("ana@example.com")

	var body errorBody
	resp, err := s.as(user.ID).SetError(&body).Post("/checkout")
	s.Require().NoError(err)
	s.Equal(http.StatusBadRequest, resp.StatusCode())
	s.Equal("no pending order found", body.Error)

	_, err = s.as(user.ID).Post("/orders")
	s.Require().NoError(err)

	var checkout CheckoutResponse
	resp, err = s.as(user.ID).SetResult(&checkout).Post("/checkout")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode())
	s.Equal("Order processed successfully.", checkout.Message)
}

func (s *RouterSuite) TestUppercaseIDsAreCanonicalized() {
	user := s.createUser("ana@example.com")

	var order OrderResponse
	resp, err := s.as(strings.ToUpper(user.ID)).SetResult(&order).Post("/orders")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode(), resp.String())
	s.Equal(user.ID, order.UserID)

	var item CartItemResponse
	resp, err = s.as(user.ID).
		SetBody(map[string]any{"order_id": strings.ToUpper(order.ID), "product_name": "Widget", "quantity": 1, "price": "2.50"}).
		SetResult(&item).
		Post("/cart-items")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode(), resp.String())
	s.Equal(order.ID, *item.OrderID)

	resp, err = s.as(user.ID).Get("/orders/" + strings.ToUpper(order.ID))
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode())
}

func (s *RouterSuite) TestAuthentication() {
	resp, err := s.client.R().Post("/orders")
	s.Require().NoError(err)
	s.Equal(http.StatusUnauthorized, resp.StatusCode())

	resp, err = s.as("not-a-uuid").Get("/orders")
	s.Require().NoError(err)
	s.Equal(http.StatusUnauthorized, resp.StatusCode())

	resp, err = s.as(uuid.NewString()).Get("/orders")
	s.Require().NoError(err)
	s.Equal(http.StatusUnauthorized, resp.StatusCode())
}

func (s *RouterSuite) TestOrdersAreOwnerScoped() {
	ana := s.createUser("ana@example.com")
	bob := s.createUser("bob@example.com")

	var order OrderResponse
	_, err := s.as(ana.ID).SetResult(&order).Post("/orders")
	s.Require().NoError(err)

	resp, err := s.as(bob.ID).Get("/orders/" + order.ID)
	s.Require().NoError(err)
	s.Equal(http.StatusNotFound, resp.StatusCode())

	resp, err = s.as(bob.ID).Get("/orders/not-a-uuid")
	s.Require().NoError(err)
	s.Equal(http.StatusNotFound, resp.StatusCode())
}

func (s *RouterSuite) TestUsers() {
	ana := s.createUser("ana@example.com")
	bob := s.createUser("bob@example.com")

	resp, err := s.client.R().
		SetBody(map[string]any{"name": "Copy", "email": "ana@example.com"}).
		Post("/users")
	s.Require().NoError(err)
	s.Equal(http.StatusBadRequest, resp.StatusCode())

	resp, err = s.client.R().Get("/users/" + ana.ID)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode())
	s.NotContains(resp.String(), "password")

	resp, err = s.as(bob.ID).SetBody(map[string]any{"name": "Eve"}).Put("/users/" + ana.ID)
	s.Require().NoError(err)
	s.Equal(http.StatusForbidden, resp.StatusCode())

	var updated UserResponse
	resp, err = s.as(ana.ID).SetBody(map[string]any{"name": "Ana Maria"}).SetResult(&updated).Put("/users/" + ana.ID)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode())
	s.Equal("Ana Maria", updated.Name)

	_, err = s.as(ana.ID).Post("/orders")
	s.Require().NoError(err)

	resp, err = s.as(ana.ID).Delete("/users/" + ana.ID)
	s.Require().NoError(err)
	s.Equal(http.StatusNoContent, resp.StatusCode())

	resp, err = s.client.R().Get("/users/" + ana.ID)
	s.Require().NoError(err)
	s.Equal(http.StatusNotFound, resp.StatusCode())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Errorf(domain.ErrValidation, "bad"), http.StatusBadRequest},
		{domain.Errorf(domain.ErrDuplicateKey, "dup"), http.StatusBadRequest},
		{domain.Errorf(domain.ErrConflict, "pending"), http.StatusBadRequest},
		{domain.Errorf(domain.ErrInvalidState, "state"), http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.Errorf(domain.ErrUnauthorized, "who"), http.StatusUnauthorized},
		{domain.Errorf(domain.ErrForbidden, "no"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

type failingUsers struct {
	UserUseCase
}

func (failingUsers) Authenticate(context.Context, string) (*domain.User, error) {
	return nil, errors.New("connection refused")
}

func TestRequireCallerHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", RequireCaller(failingUsers{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, uuid.NewString())
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}
