package types

import (
	"fmt"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/samber/lo"
)

// transitionTable lists, per source state, the states it may move to.
type transitionTable[T ~string] map[T][]T

// allows reports whether from -> to is permitted. Same-state moves are no-ops and always allowed.
func (t transitionTable[T]) allows(from, to T) bool {
	if from == to {
		return true
	}
	return lo.Contains(t[from], to)
}

func (t transitionTable[T]) validate(entity string, from, to T) error {
	if t.allows(from, to) {
		return nil
	}
	return ierr.NewError(fmt.Sprintf("invalid %s status transition", entity)).
		WithHintf("Cannot move %s from %s to %s", entity, from, to).
		WithReportableDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": t[from],
		}).
		Mark(ierr.ErrValidation)
}
