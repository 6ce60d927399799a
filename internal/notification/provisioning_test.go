package notification_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/flexprice/ispbilling/internal/config"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/httpclient"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/notification"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedCall struct {
	path, tenant, auth string
	body               map[string]any
}

func provisioningServer(t *testing.T, status int) (*httptest.Server, *[]capturedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []capturedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, capturedCall{
			path:   r.URL.Path,
			tenant: r.Header.Get("X-Tenant-ID"),
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func provisioningConfig(url string) *config.Configuration {
	cfg := config.GetDefaultConfig()
	cfg.Provisioning = config.ProvisioningConfig{
		ServiceRestoreURL: url + "/services/restore",
		DunningResolveURL: url + "/dunning/resolve",
		APIKey:            "prov_key",
		Timeout:           2 * time.Second,
	}
	return cfg
}

func TestRestoreAccountServicesOverHTTP(t *testing.T) {
	srv, calls := provisioningServer(t, http.StatusAccepted)
	cfg := provisioningConfig(srv.URL)
	client := httpclient.NewDefaultClient(cfg.Provisioning.Timeout)

	restorer := notification.NewServiceRestorer(cfg, client, logger.NewNopLogger())
	ctx := types.SetTenantID(t.Context(), "tenant_a")
	require.NoError(t, restorer.RestoreAccountServices(ctx, "acct_1", "inv_1"))

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/services/restore", call.path)
	assert.Equal(t, "tenant_a", call.tenant)
	assert.Equal(t, "Bearer prov_key", call.auth)
	assert.Equal(t, "acct_1", call.body["account_id"])
	assert.Equal(t, "inv_1", call.body["invoice_id"])
}

func TestResolveCasesOverHTTP(t *testing.T) {
	srv, calls := provisioningServer(t, http.StatusOK)
	cfg := provisioningConfig(srv.URL)
	client := httpclient.NewDefaultClient(cfg.Provisioning.Timeout)

	resolver := notification.NewDunningResolver(cfg, client, logger.NewNopLogger())
	require.NoError(t, resolver.ResolveCasesForAccount(t.Context(), "acct_1", lo.ToPtr("inv_9")))
	require.NoError(t, resolver.ResolveCasesForAccount(t.Context(), "acct_2", nil))

	require.Len(t, *calls, 2)
	assert.Equal(t, "/dunning/resolve", (*calls)[0].path)
	assert.Equal(t, "inv_9", (*calls)[0].body["invoice_id"])
	_, hasInvoice := (*calls)[1].body["invoice_id"]
	assert.False(t, hasInvoice)
}

func TestProvisioningFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error is retryable", http.StatusBadGateway, true},
		{"rate limited is retryable", http.StatusTooManyRequests, true},
		{"rejected request is not", http.StatusUnprocessableEntity, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := provisioningServer(t, tc.status)
			cfg := provisioningConfig(srv.URL)
			client := httpclient.NewDefaultClient(cfg.Provisioning.Timeout)

			err := notification.NewServiceRestorer(cfg, client, logger.NewNopLogger()).
				RestoreAccountServices(t.Context(), "acct_1", "inv_1")
			require.Error(t, err)
			assert.Equal(t, tc.transient, ierr.IsTransient(err))

			httpErr, ok := httpclient.IsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, tc.status, httpErr.StatusCode)
		})
	}
}

func TestProvisioningFallsBackToLogging(t *testing.T) {
	cfg := config.GetDefaultConfig()
	client := httpclient.NewDefaultClient(0)

	restorer := notification.NewServiceRestorer(cfg, client, logger.NewNopLogger())
	resolver := notification.NewDunningResolver(cfg, client, logger.NewNopLogger())

	assert.NoError(t, restorer.RestoreAccountServices(t.Context(), "acct_1", "inv_1"))
	assert.NoError(t, resolver.ResolveCasesForAccount(t.Context(), "acct_1", nil))
}
