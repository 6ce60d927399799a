package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
	pqAdminShutdown        = "57P01"
	pqTooManyConnections   = "53300"
	pqConnectionException  = "08"
)

// ClassifyError maps a driver error to the application's error kinds.
// Lock and connectivity failures are marked transient so the billing run retry can pick them up.
func ClassifyError(err error, hint string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHint(hint).
			Mark(ierr.ErrNotFound)
	}

	if isTransient(err) {
		transient := ierr.WithError(err).
			WithHint(hint).
			Mark(ierr.ErrTransient)
		return ierr.WithError(transient).Mark(ierr.ErrDatabase)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(map[string]any{
				"constraint": pqErr.Constraint,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	return ierr.WithError(err).
		WithHint(hint).
		Mark(ierr.ErrDatabase)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	switch string(pqErr.Code) {
	case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable, pqAdminShutdown, pqTooManyConnections:
		return true
	}
	return string(pqErr.Code.Class()) == pqConnectionException
}
