package postgres

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/sequence"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
)

type sequenceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSequenceRepository(db *postgres.DB, logger *logger.Logger) sequence.Repository {
	return &sequenceRepository{db: db, logger: logger}
}

// Next seeds the row on first use, locks it, and bumps the counter. The lock is
// held by the caller's transaction so two documents never share a number.
func (r *sequenceRepository) Next(ctx context.Context, key string, start int64) (int64, error) {
	params := map[string]interface{}{
		"tenant_id":    types.GetTenantID(ctx),
		"sequence_key": key,
		"start":        start,
	}

	var value int64
	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		seed := `INSERT INTO document_sequences (tenant_id, sequence_key, next_value, updated_at)
			VALUES (:tenant_id, :sequence_key, :start, NOW())
			ON CONFLICT (tenant_id, sequence_key) DO NOTHING`
		if _, err := r.db.NamedExecContext(ctx, seed, params); err != nil {
			return postgres.ClassifyError(err, "Failed to seed document sequence")
		}

		lock := `SELECT next_value FROM document_sequences
			WHERE tenant_id = :tenant_id AND sequence_key = :sequence_key
			FOR UPDATE`
		if err := r.db.NamedGetContext(ctx, &value, lock, params); err != nil {
			return postgres.ClassifyError(err, "Failed to lock document sequence")
		}

		bump := `UPDATE document_sequences SET next_value = next_value + 1, updated_at = NOW()
			WHERE tenant_id = :tenant_id AND sequence_key = :sequence_key`
		if _, err := r.db.NamedExecContext(ctx, bump, params); err != nil {
			return postgres.ClassifyError(err, "Failed to advance document sequence")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debugw("minted document sequence value",
		"sequence_key", key,
		"value", value,
	)
	return value, nil
}
