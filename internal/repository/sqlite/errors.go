package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/matheusmosca/shop-service/internal/domain"
)

// wrap translates constraint violations into domain errors and annotates
// everything else with op. Foreign key failures carry no table name in
// SQLite, so they come back as the bare domain.ErrNotFound for the caller to
// name.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) || sqlErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}

	msg := sqlErr.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: orders.user_id"):
		return domain.Errorf(domain.ErrConflict, "user already has a pending order")
	case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
		return domain.Errorf(domain.ErrDuplicateKey, "user with this email already exists")
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY"):
		return domain.Errorf(domain.ErrDuplicateKey, "duplicate key")
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return domain.ErrNotFound
	case strings.Contains(msg, "CHECK constraint failed"):
		return domain.Errorf(domain.ErrValidation, "check constraint violated")
	}
	return fmt.Errorf("sqlite: %s: %w", op, err)
}

// notFound names the missing entity when wrap returned the bare sentinel.
func notFound(err error, what string) error {
	if err == domain.ErrNotFound {
		return domain.Errorf(domain.ErrNotFound, "%s not found", what)
	}
	return err
}
