package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgUndefinedTable      = "42P01"
	pgSerializationFailed = "40001"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) || PGCode(err) == pgUniqueViolation {
		return true
	}

	msg := err.Error()
	// MySQL 1062, SQLite 2067
	return strings.Contains(msg, "Error 1062") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsUndefinedTableErr reports a missing relation on any supported dialect.
func IsUndefinedTableErr(err error) bool {
	if err == nil {
		return false
	}
	if PGCode(err) == pgUndefinedTable {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "Error 1146")
}

// IsSerializationErr reports a postgres serialization failure.
func IsSerializationErr(err error) bool {
	return PGCode(err) == pgSerializationFailed
}

// PGCode returns the SQLSTATE of a wrapped postgres error, or "".
func PGCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
