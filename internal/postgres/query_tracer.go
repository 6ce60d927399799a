package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/jmoiron/sqlx"
)

// slowQueryThreshold is the duration above which a query is logged at warn level
const slowQueryThreshold = 500 * time.Millisecond

// trace starts timing one statement and returns the func that logs its outcome
func (tq *TracedQuerier) trace(query string, params interface{}) func(err error) {
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start)
		fields := []interface{}{
			"duration_ms", elapsed.Milliseconds(),
			"query", query,
		}
		if tq.txID != "" {
			fields = append(fields, "tx_id", tq.txID)
		}

		switch {
		// no rows is an expected outcome of lookups, not a failure
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			fields = append(fields, "params", fmt.Sprintf("%+v", params), "error", err.Error())
			tq.logger.Errorw("database query failed", fields...)
		case elapsed > slowQueryThreshold:
			tq.logger.Warnw("slow database query", fields...)
		default:
			tq.logger.Debugw("database query completed", append(fields, "params", fmt.Sprintf("%+v", params))...)
		}
	}
}

// TracedQuerier wraps a Querier with tracing
type TracedQuerier struct {
	Querier
	logger *logger.Logger
	txID   string
}

// NewTracedQuerier creates a new traced querier
func NewTracedQuerier(q Querier, logger *logger.Logger, txID string) *TracedQuerier {
	return &TracedQuerier{
		Querier: q,
		logger:  logger,
		txID:    txID,
	}
}

func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	done := tq.trace(query, args)
	result, err := tq.Querier.ExecContext(ctx, query, args...)
	done(err)
	return result, err
}

func (tq *TracedQuerier) NamedExec(query string, arg interface{}) (sql.Result, error) {
	done := tq.trace(query, arg)
	result, err := tq.Querier.NamedExec(query, arg)
	done(err)
	return result, err
}

func (tq *TracedQuerier) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	done := tq.trace(query, args)
	rows, err := tq.Querier.QueryContext(ctx, query, args...)
	done(err)
	return rows, err
}

func (tq *TracedQuerier) NamedQuery(query string, arg interface{}) (*sqlx.Rows, error) {
	done := tq.trace(query, arg)
	rows, err := tq.Querier.NamedQuery(query, arg)
	done(err)
	return rows, err
}

func (tq *TracedQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	done := tq.trace(query, args)
	err := tq.Querier.GetContext(ctx, dest, query, args...)
	done(err)
	return err
}

func (tq *TracedQuerier) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	done := tq.trace(query, args)
	err := tq.Querier.SelectContext(ctx, dest, query, args...)
	done(err)
	return err
}
