package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// MockPostgresClient runs transactions against the in-memory stores. Every
// WithTx level snapshots the registered stores and restores them when fn
// fails, so nested calls behave like savepoints and an outer failure undoes
// everything. After-commit hooks follow the same rules as the real client.
type MockPostgresClient struct {
	mu     sync.Mutex
	stores []Snapshotter
	logger *logger.Logger
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger, stores ...Snapshotter) *MockPostgresClient {
	return &MockPostgresClient{
		stores: stores,
		logger: logger,
	}
}

// Register adds stores to the rollback set
func (c *MockPostgresClient) Register(stores ...Snapshotter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores = append(c.stores, stores...)
}

// WithTx executes the given function within a transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	outer := ctx
	ctx, hooks, owner := postgres.BeginCommitHooks(ctx)
	mark := hooks.Len()
	restore := c.snapshot()

	if err := fn(ctx); err != nil {
		hooks.Truncate(mark)
		restore()
		c.logger.Debugw("rolled back in-memory transaction", "error", err)
		return err
	}

	if owner {
		hooks.Run(outer)
	}
	return nil
}

func (c *MockPostgresClient) snapshot() func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	restores := make([]func(), 0, len(c.stores))
	for _, s := range c.stores {
		restores = append(restores, s.Snapshot())
	}
	return func() {
		for _, restore := range restores {
			restore()
		}
	}
}
