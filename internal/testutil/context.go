package testutil

import (
	"context"

	"github.com/flexprice/ispbilling/internal/types"
)

// SetupContext returns a context carrying the default tenant, user and a fresh request id
func SetupContext() context.Context {
	ctx := types.WithDefaultTenant(context.Background())
	return types.SetRequestID(ctx, types.GenerateUUID())
}
