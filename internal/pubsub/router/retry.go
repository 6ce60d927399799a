package router

import (
	"context"
	"net"

	"github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
)

// shouldRetry decides whether a failed delivery goes back through the retry middleware.
// Business errors never succeed on a second attempt, so they are dropped after logging.
func shouldRetry(logger *logger.Logger, err error) bool {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		logger.Debugw("retrying due to network timeout", "error", netErr)
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.IsTransient(err) {
		return true
	}

	if errors.IsValidation(err) ||
		errors.IsNotFound(err) ||
		errors.IsInvalidOperation(err) ||
		errors.IsPermissionDenied(err) {
		return false
	}

	return true
}
