package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/ispbilling/internal/errors"
)

const defaultTimeout = 30 * time.Second

// Request is an outbound call to a collaborator service
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the collaborator's reply
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// Client sends requests to the provisioning and dunning services
type Client interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

type DefaultClient struct {
	client *http.Client
}

// NewDefaultClient returns a client with the given timeout, 30s when zero
func NewDefaultClient(timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &DefaultClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Send performs the request. Connection failures and 5xx/429 replies are
// marked transient so the notification consumer retries them.
func (c *DefaultClient) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Invalid request to %s", req.URL).
			Mark(ierr.ErrHTTPClient)
	}

	if req.Body != nil {
		httpReq.ContentLength = int64(len(req.Body))
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Mark(ierr.WithError(err).
			WithHintf("Could not reach %s", req.URL).
			Mark(ierr.ErrHTTPClient), ierr.ErrTransient)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Mark(ierr.WithError(err).
			WithHint("Failed to read the response body").
			Mark(ierr.ErrHTTPClient), ierr.ErrTransient)
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	if resp.StatusCode >= 400 {
		return nil, NewError(req.URL, resp.StatusCode, respBody)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    headers,
	}, nil
}
