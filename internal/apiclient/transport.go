package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"racoonsmeal/internal/credential"
	"racoonsmeal/pkg/apierror"
)

// request describes one API call. It is immutable so every attempt can rebuild
// its own *http.Request.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
}

func newJSONRequest(method string, path string, payload any) (request, error) {
	req := request{method: method, path: path, contentType: "application/json"}
	if payload == nil {
		return req, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	req.body = body

	return req, nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) decode(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// TransportError reports a request that never produced an HTTP response.
type TransportError struct {
	BaseURL string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot connect to backend at %s: %v", e.BaseURL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (c *Client) do(ctx context.Context, req request) (*response, error) {
	return c.attempt(ctx, req, 0, "")
}

// attempt sends req. A first attempt that is rejected with 401 goes through the
// refresh coordinator and is replayed once with the token it hands back; any other
// failure is returned unchanged.
func (c *Client) attempt(ctx context.Context, req request, attempt int, token string) (*response, error) {
	if token == "" {
		token = c.authorizationToken(ctx)
	}

	resp, err := c.roundTrip(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.status >= 200 && resp.status < 300 {
		return resp, nil
	}

	apiErr := apierror.FromResponse(resp.status, resp.body)
	if resp.status != http.StatusUnauthorized || attempt > 0 {
		return nil, apiErr
	}

	refreshed, err := c.refresher.acquire(ctx, token, apiErr)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("replaying request with refreshed token", "method", req.method, "path", req.path)
	return c.attempt(ctx, req, attempt+1, refreshed)
}

// roundTrip performs a single exchange with no recovery.
func (c *Client) roundTrip(ctx context.Context, req request, token string) (*response, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil && req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.handleRequestError(ctx, fmt.Errorf("read response: %w", err))
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled: %w", ctx.Err())
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", ctx.Err())
	}
	return &TransportError{BaseURL: c.baseURL, Err: err}
}

// authorizationToken returns the stored access token, falling back to the default
// authorization set by the last refresh. An empty result sends the request unauthenticated.
func (c *Client) authorizationToken(ctx context.Context) string {
	token, ok, err := c.credentials.Get(ctx, credential.KeyAccessToken)
	if err != nil {
		c.logger.Warn("failed to read access token", "error", err)
	}
	if ok && token != "" {
		return token
	}

	return c.DefaultAuthorization()
}

func (c *Client) storedValue(ctx context.Context, key string) (string, bool) {
	value, ok, err := c.credentials.Get(ctx, key)
	if err != nil {
		c.logger.Warn("failed to read credential", "key", key, "error", err)
		return "", false
	}
	return value, ok && value != ""
}
