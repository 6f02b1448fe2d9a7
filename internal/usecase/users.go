package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/logging"
	"github.com/matheusmosca/shop-service/internal/repository"
)

// UserInput carries the registration fields.
type UserInput struct {
	Name     string
	Email    string
	Address  *string
	Phone    *string
	Password *string
}

// UserPatch carries a partial update; nil fields are left unchanged and an
// empty Address or Phone clears it.
type UserPatch struct {
	Name     *string
	Email    *string
	Address  *string
	Phone    *string
	Password *string
}

type UserUseCase struct {
	repository repository.Repository
	logger     *zap.Logger
}

func NewUserUseCase(repo repository.Repository, logger *zap.Logger) *UserUseCase {
	return &UserUseCase{
		repository: repo,
		logger:     logger,
	}
}

// Register creates a user. A taken email fails with domain.ErrDuplicateKey.
func (uc *UserUseCase) Register(ctx context.Context, in UserInput) (*domain.User, error) {
	user, err := domain.NewUser(in.Name, in.Email, in.Address, in.Phone, in.Password)
	if err != nil {
		return nil, err
	}
	if err := uc.repository.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logging.FromContext(ctx, uc.logger).Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (uc *UserUseCase) Get(ctx context.Context, id string) (*domain.User, error) {
	return uc.repository.GetUser(ctx, id)
}

func (uc *UserUseCase) List(ctx context.Context) ([]domain.User, error) {
	return uc.repository.ListUsers(ctx)
}

// Update applies patch to the caller's own account.
func (uc *UserUseCase) Update(ctx context.Context, callerID, id string, patch UserPatch) (*domain.User, error) {
	if callerID != id {
		return nil, domain.Errorf(domain.ErrForbidden, "you can only update your own account")
	}

	user, err := uc.repository.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		user.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Address != nil {
		user.Address = emptyToNil(patch.Address)
	}
	if patch.Phone != nil {
		user.Phone = emptyToNil(patch.Phone)
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if patch.Password != nil {
		if err := user.SetPassword(patch.Password); err != nil {
			return nil, err
		}
	}

	if err := uc.repository.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	logging.FromContext(ctx, uc.logger).Info("user updated", zap.String("user_id", user.ID))
	return user, nil
}

// Delete removes the caller's own account with its orders and cart items.
func (uc *UserUseCase) Delete(ctx context.Context, callerID, id string) error {
	if callerID != id {
		return domain.Errorf(domain.ErrForbidden, "you can only delete your own account")
	}
	if err := uc.repository.DeleteUser(ctx, id); err != nil {
		return err
	}

	logging.FromContext(ctx, uc.logger).Info("user deleted", zap.String("user_id", id))
	return nil
}

// Authenticate resolves a caller id taken from the request. Missing,
// malformed and unknown ids all fail with domain.ErrUnauthorized.
func (uc *UserUseCase) Authenticate(ctx context.Context, rawID string) (*domain.User, error) {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return nil, domain.Errorf(domain.ErrUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, domain.Errorf(domain.ErrUnauthorized, "invalid user id")
	}

	user, err := uc.repository.GetUser(ctx, id.String())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrUnauthorized, "unknown user")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func emptyToNil(s *string) *string {
	if v := strings.TrimSpace(*s); v != "" {
		return &v
	}
	return nil
}
