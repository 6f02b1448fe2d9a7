package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/repository"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUniqueViolation           = "23505"
	codeForeignKeyViolation       = "23503"
	codeCheckViolation            = "23514"
	codeInvalidTextRepresentation = "22P02"
	codeNumericValueOutOfRange    = "22003"
)

// wrap translates constraint violations into domain errors and annotates
// everything else with op.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case repository.PendingOrderConstraint:
			return domain.Errorf(domain.ErrConflict, "user already has a pending order")
		case "users_email_key":
			return domain.Errorf(domain.ErrDuplicateKey, "user with this email already exists")
		}
		return domain.Errorf(domain.ErrDuplicateKey, "duplicate key: %s", pgErr.ConstraintName)
	case codeForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "orders_user_id_fkey":
			return domain.Errorf(domain.ErrNotFound, "user not found")
		case "cart_items_order_id_fkey":
			return domain.Errorf(domain.ErrNotFound, "order not found")
		}
		return domain.Errorf(domain.ErrNotFound, "referenced record not found")
	case codeCheckViolation:
		return domain.Errorf(domain.ErrValidation, "constraint %s violated", pgErr.ConstraintName)
	case codeInvalidTextRepresentation:
		return domain.ErrNotFound
	case codeNumericValueOutOfRange:
		return domain.Errorf(domain.ErrValidation, "numeric value out of range")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notFound names the missing entity when wrap returned the bare sentinel.
func notFound(err error, what string) error {
	if err == domain.ErrNotFound {
		return domain.Errorf(domain.ErrNotFound, "%s not found", what)
	}
	return err
}
