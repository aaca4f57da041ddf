package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrInfrastructure marks storage failures that are not business rule violations.
var ErrInfrastructure = errors.New("infrastructure_error")

type infraError struct {
	cause error
}

func (e *infraError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInfrastructure.Error(), e.cause)
}

func (e *infraError) Unwrap() []error {
	return []error{ErrInfrastructure, e.cause}
}

// Infra wraps a driver error so callers can test errors.Is(err, ErrInfrastructure)
// while the original cause stays reachable. Nil and already wrapped errors pass through.
func Infra(err error) error {
	if err == nil || errors.Is(err, ErrInfrastructure) {
		return err
	}
	return &infraError{cause: err}
}

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}
