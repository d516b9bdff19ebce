// Package dberr maps driver errors onto the apperr taxonomy.
package dberr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"habittracker/internal/apperr"
)

// Postgres SQLSTATE codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgClassConnection     = "08"
	pgAdminShutdown       = "57P01"
	pgCannotConnectNow    = "57P03"
)

// Classify wraps err with op and, where the cause is recognised, with the
// matching apperr sentinel:
//
//	no rows, FK violation          -> ErrNotFound
//	unique violation               -> ErrConflict
//	connection loss, timeouts      -> ErrStorageUnavailable
//
// Anything else is wrapped unchanged and treated as an internal error.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
		case pgErr.Code == pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
		case strings.HasPrefix(pgErr.Code, pgClassConnection),
			pgErr.Code == pgAdminShutdown,
			pgErr.Code == pgCannotConnectNow:
			return apperr.Unavailable(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if IsTransient(err) {
		return apperr.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsTransient reports whether err looks like a failure to reach the store
// rather than a problem with the statement.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, pgx.ErrTxClosed) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "closed pool")
}
