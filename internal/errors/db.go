package errors

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MySQL/PostgreSQL error codes for duplicate key violations.
const (
	mysqlDuplicateEntry  = 1062
	postgresUniqueViolat = "23505"
)

// ParseDBError maps a database driver error to an APIError. Record-not-found
// becomes ErrNotFound, duplicate-key violations become ErrDuplicate, and
// anything else becomes ErrDatabase. Returns nil for a nil input.
func ParseDBError(err error) *APIError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDuplicate
		}
		return ErrDatabase
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == postgresUniqueViolat {
			return ErrDuplicate
		}
		return ErrDatabase
	}

	return ErrDatabase
}
