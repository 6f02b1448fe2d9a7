package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/matheusmosca/shop-service/internal/domain"
)

type CreateUserRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

type UpdateOrderRequest struct {
	Status *string `json:"status"`
}

// CreateCartItemRequest accepts the price as a JSON string or number.
type CreateCartItemRequest struct {
	OrderID     *string          `json:"order_id"`
	ProductName string           `json:"product_name"`
	Quantity    int              `json:"quantity"`
	Price       *decimal.Decimal `json:"price"`
}

type UpdateCartItemRequest struct {
	ProductName *string          `json:"product_name"`
	Quantity    *int             `json:"quantity"`
	Price       *decimal.Decimal `json:"price"`
}

type UserResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

type OrderResponse struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	CartItems []CartItemResponse `json:"cart_items"`
}

// CartItemResponse renders the price with exactly two decimals.
type CartItemResponse struct {
	ID          string  `json:"id"`
	OrderID     *string `json:"order_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       string  `json:"price"`
}

type CheckoutResponse struct {
	Message string        `json:"message"`
	Order   OrderResponse `json:"order"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Address: u.Address,
		Phone:   u.Phone,
	}
}

func toOrderResponse(o *domain.Order) OrderResponse {
	items := make([]CartItemResponse, 0, len(o.CartItems))
	for i := range o.CartItems {
		items = append(items, toCartItemResponse(&o.CartItems[i]))
	}
	return OrderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		CartItems: items,
	}
}

func toCartItemResponse(i *domain.CartItem) CartItemResponse {
	return CartItemResponse{
		ID:          i.ID,
		OrderID:     i.OrderID,
		ProductName: i.ProductName,
		Quantity:    i.Quantity,
		Price:       i.Price.StringFixed(2),
	}
}
