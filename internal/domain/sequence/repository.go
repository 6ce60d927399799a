package sequence

import "context"

type Repository interface {
	// Next returns the current value for key and increments it, holding the
	// row lock until the surrounding transaction ends. A missing row starts at start.
	Next(ctx context.Context, key string, start int64) (int64, error)
}
