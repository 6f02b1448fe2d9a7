package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusProcessed OrderStatus = "Processed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// PasswordCost is the bcrypt cost used when hashing user passwords.
var PasswordCost = bcrypt.DefaultCost

var (
	// maxPrice mirrors NUMERIC(10,2): eight integer digits.
	maxPrice = decimal.New(1, 8)

	validate = newValidator()
)

// User is a registered customer.
type User struct {
	ID           string  `json:"id" validate:"required,uuid"`
	Name         string  `json:"name" validate:"required,max=100"`
	Email        string  `json:"email" validate:"required,email,max=254"`
	Address      *string `json:"address" validate:"omitempty,max=255"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
	PasswordHash *string `json:"-"`
}

// NewUser validates the registration fields and returns a user with a fresh
// id. A non-empty password is stored as a bcrypt hash.
func NewUser(name, email string, address, phone, password *string) (*User, error) {
	u := &User{
		ID:      uuid.New().String(),
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Address: address,
		Phone:   phone,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the user's fields.
func (u *User) Validate() error {
	return validateStruct(u)
}

// SetPassword replaces the stored hash. A nil or empty password clears it.
func (u *User) SetPassword(password *string) error {
	if password == nil || *password == "" {
		u.PasswordHash = nil
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), PasswordCost)
	if err != nil {
		return Errorf(ErrValidation, "password: %v", err)
	}
	h := string(hash)
	u.PasswordHash = &h
	return nil
}

// Order groups the cart items a user is buying.
type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	CartItems []CartItem  `json:"cart_items"`
}

// NewOrder creates a pending order for the user.
func NewOrder(userID string) *Order {
	now := Now()
	return &Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		CartItems: []CartItem{},
	}
}

// ParseOrderStatus converts s to a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusProcessed, OrderStatusCancelled:
		return st, nil
	}
	return "", Errorf(ErrValidation, "unknown order status %q", s)
}

// CanTransitionTo reports whether an order in status s may move to next.
// Only Pending has outgoing transitions; Processed and Cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && (next == OrderStatusProcessed || next == OrderStatusCancelled)
}

// TransitionTo moves the order to next, refreshing UpdatedAt.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return Errorf(ErrInvalidState, "cannot move order from %s to %s", o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = Now()
	return nil
}

// Checkout marks a pending order as processed. Checking out an order that is
// already processed is not an error: alreadyProcessed is true and the order
// is left untouched.
func (o *Order) Checkout() (alreadyProcessed bool, err error) {
	if o.Status == OrderStatusProcessed {
		return true, nil
	}
	return false, o.TransitionTo(OrderStatusProcessed)
}

// Cancel marks a pending order as cancelled.
func (o *Order) Cancel() error {
	return o.TransitionTo(OrderStatusCancelled)
}

// CartItem is a product line attached to an order.
type CartItem struct {
	ID          string          `json:"id" validate:"required,uuid"`
	OrderID     *string         `json:"order_id" validate:"omitempty,uuid"`
	ProductName string          `json:"product_name" validate:"required,max=255"`
	Quantity    int             `json:"quantity" validate:"gt=0,lte=2147483647"`
	Price       decimal.Decimal `json:"price"`
}

// NewCartItem validates the item fields and returns an item with a fresh id.
func NewCartItem(orderID *string, productName string, quantity int, price decimal.Decimal) (*CartItem, error) {
	item := &CartItem{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		ProductName: strings.TrimSpace(productName),
		Quantity:    quantity,
		Price:       price,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks the item's fields, including the price scale.
func (c *CartItem) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	switch {
	case c.Price.IsNegative():
		return Errorf(ErrValidation, "price must be greater than or equal to 0")
	case !c.Price.Equal(c.Price.Round(2)):
		return Errorf(ErrValidation, "price must have at most 2 decimal places")
	case c.Price.GreaterThanOrEqual(maxPrice):
		return Errorf(ErrValidation, "price must be less than %s", maxPrice)
	}
	return nil
}

// Now returns the current UTC time at the precision the stores keep.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errorf(ErrValidation, "%v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return Errorf(ErrValidation, "%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be a valid email address"
	case "uuid":
		return fe.Field() + " must be a valid UUID"
	}
	return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
}
