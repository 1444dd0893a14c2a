package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUndefinedFunction    = "42883"
	pgUndefinedObject      = "42704"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) || HasPGCode(err, pgUniqueViolation) {
		return true
	}

	msg := err.Error()
	// PostgreSQL without a typed error, MySQL 1062, SQLite 2067.
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "Error 1062") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsUndefinedFunction reports whether err says a SQL function or operator
// class is missing, which is how a missing pg_trgm extension surfaces.
func IsUndefinedFunction(err error) bool {
	if HasPGCode(err, pgUndefinedFunction) || HasPGCode(err, pgUndefinedObject) {
		return true
	}
	if err == nil {
		return false
	}
	// SQLite and MySQL report unknown functions as plain text.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such function") ||
		(strings.Contains(msg, "function") && strings.Contains(msg, "does not exist"))
}

// IsLockTimeout reports lock_not_available.
func IsLockTimeout(err error) bool {
	return HasPGCode(err, pgLockNotAvailable)
}

// IsSerializationFailure reports serialization failures and deadlocks.
func IsSerializationFailure(err error) bool {
	return HasPGCode(err, pgSerializationFailure) || HasPGCode(err, pgDeadlockDetected)
}

// IsRetryable reports errors worth retrying on the next batch run.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return IsLockTimeout(err) || IsSerializationFailure(err)
}

func HasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
