package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrImmutableField       = errors.New("refusing to overwrite confirmed field")
	ErrUserNotFound         = errors.New("user not found")
)

// isUniqueViolation matches the pgx unique_violation error the postgres
// driver surfaces through gorm.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
