package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/flexprice/ispbilling/internal/config"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/httpclient"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/types"
)

type restoreServicesRequest struct {
	AccountID string `json:"account_id"`
	InvoiceID string `json:"invoice_id"`
}

type resolveCasesRequest struct {
	AccountID string  `json:"account_id"`
	InvoiceID *string `json:"invoice_id,omitempty"`
}

// provisioningClient calls the provisioning and dunning services over HTTP
type provisioningClient struct {
	client     httpclient.Client
	restoreURL string
	resolveURL string
	apiKey     string
	logger     *logger.Logger
}

func newProvisioningClient(client httpclient.Client, cfg *config.ProvisioningConfig, logger *logger.Logger) *provisioningClient {
	return &provisioningClient{
		client:     client,
		restoreURL: cfg.ServiceRestoreURL,
		resolveURL: cfg.DunningResolveURL,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

func (c *provisioningClient) RestoreAccountServices(ctx context.Context, accountID, invoiceID string) error {
	return c.post(ctx, c.restoreURL, restoreServicesRequest{
		AccountID: accountID,
		InvoiceID: invoiceID,
	})
}

func (c *provisioningClient) ResolveCasesForAccount(ctx context.Context, accountID string, invoiceID *string) error {
	return c.post(ctx, c.resolveURL, resolveCasesRequest{
		AccountID: accountID,
		InvoiceID: invoiceID,
	})
}

func (c *provisioningClient) post(ctx context.Context, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode collaborator request").
			Mark(ierr.ErrSystem)
	}

	headers := map[string]string{
		"X-Tenant-ID":  types.GetTenantID(ctx),
		"X-Request-ID": types.GetRequestID(ctx),
	}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	resp, err := c.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     url,
		Headers: headers,
		Body:    payload,
	})
	if err != nil {
		return err
	}

	c.logger.Debugw("collaborator call succeeded",
		"url", url,
		"status_code", resp.StatusCode,
	)
	return nil
}

// NewServiceRestorer returns the HTTP restorer when a provisioning URL is configured
func NewServiceRestorer(cfg *config.Configuration, client httpclient.Client, logger *logger.Logger) ServiceRestorer {
	if cfg.Provisioning.ServiceRestoreURL == "" {
		return NewLoggingServiceRestorer(logger)
	}
	return newProvisioningClient(client, &cfg.Provisioning, logger)
}

// NewDunningResolver returns the HTTP resolver when a dunning URL is configured
func NewDunningResolver(cfg *config.Configuration, client httpclient.Client, logger *logger.Logger) DunningResolver {
	if cfg.Provisioning.DunningResolveURL == "" {
		return NewLoggingDunningResolver(logger)
	}
	return newProvisioningClient(client, &cfg.Provisioning, logger)
}

func provideHTTPClient(cfg *config.Configuration) httpclient.Client {
	return httpclient.NewDefaultClient(cfg.Provisioning.Timeout)
}
