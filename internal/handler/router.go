package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	ServiceName string
	Users       UserUseCase
	Orders      OrderUseCase
	Carts       CartUseCase
	Store       Pinger
	Tracer      trace.Tracer
	Logger      *zap.Logger
}

// NewRouter wires the HTTP routes. Everything except /health and the public
// user endpoints requires the X-User-Id header.
func NewRouter(cfg RouterConfig) *gin.Engine {
	users := NewUserHandler(cfg.Users, cfg.Tracer, cfg.Logger)
	orders := NewOrderHandler(cfg.Orders, cfg.Tracer, cfg.Logger)
	carts := NewCartHandler(cfg.Carts, cfg.Orders, cfg.Tracer, cfg.Logger)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.ServiceName),
		RequestID(),
		Logger(cfg.Logger),
	)

	r.GET("/health", health(cfg.ServiceName, cfg.Store))

	r.POST("/users", users.Create)
	r.GET("/users", users.List)
	r.GET("/users/:id", users.Get)

	auth := r.Group("/", RequireCaller(cfg.Users))
	{
		auth.PUT("/users/:id", users.Update)
		auth.DELETE("/users/:id", users.Delete)

		auth.POST("/orders", orders.Create)
		auth.GET("/orders", orders.List)
		auth.GET("/orders/:id", orders.Get)
		auth.PUT("/orders/:id", orders.Update)
		auth.DELETE("/orders/:id", orders.Delete)
		auth.PUT("/orders/:id/checkout", orders.Checkout)
		auth.POST("/orders/:id/checkout", orders.Checkout)
		auth.POST("/checkout", orders.CheckoutPending)

		auth.POST("/cart-items", carts.Create)
		auth.GET("/cart-items", carts.List)
		auth.GET("/cart-items/:id", carts.Get)
		auth.PUT("/cart-items/:id", carts.Update)
		auth.DELETE("/cart-items/:id", carts.Delete)
	}

	return r
}

func health(service string, store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "healthy", "service": service}
		if err := store.Ping(ctx); err != nil {
			status["status"] = "unhealthy"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
