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

// UserUseCase is the user service consumed by UserHandler.
type UserUseCase interface {
	Authenticator
	Register(ctx context.Context, in usecase.UserInput) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, callerID, id string, patch usecase.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, callerID, id string) error
}

type UserHandler struct {
	useCase UserUseCase
	tracer  trace.Tracer
	logger  *zap.Logger
}

func NewUserHandler(useCase UserUseCase, tracer trace.Tracer, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		useCase: useCase,
		tracer:  tracer,
		logger:  logger,
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "create_user")
	defer span.End()

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, "invalid request body")
		return
	}

	user, err := h.useCase.Register(ctx, usecase.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Address:  req.Address,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *UserHandler) List(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_users")
	defer span.End()

	users, err := h.useCase.List(ctx)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Get(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_user")
	defer span.End()

	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user_id", id))

	user, err := h.useCase.Get(ctx, id)
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) Update(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "update_user")
	defer span.End()

	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user_id", id))

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, "invalid request body")
		return
	}

	user, err := h.useCase.Update(ctx, caller(c).ID, id, usecase.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Address:  req.Address,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) Delete(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "delete_user")
	defer span.End()

	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user_id", id))

	if err := h.useCase.Delete(ctx, caller(c).ID, id); err != nil {
		writeError(c, h.logger, span, err)
		return
	}
	c.Status(http.StatusNoContent)
}
