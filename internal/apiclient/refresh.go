package apiclient

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"racoonsmeal/internal/credential"
	"racoonsmeal/internal/model"
	"racoonsmeal/pkg/apierror"
)

var ErrInvalidRefreshResponse = errors.New("invalid response from token refresh")

type refreshOutcome struct {
	token string
	err   error
}

// refresher guarantees at most one refresh exchange in flight. Requests that hit a
// 401 while an exchange is running wait in FIFO order and all receive its outcome.
// The queue is empty whenever refreshing is false.
type refresher struct {
	client *Client

	mu         sync.Mutex
	refreshing bool
	queue      []chan refreshOutcome
}

// acquire returns the token a 401'd request should be replayed with. usedToken is the
// bearer token the failed attempt carried and cause is its 401 error.
func (r *refresher) acquire(ctx context.Context, usedToken string, cause error) (string, error) {
	r.mu.Lock()
	if r.refreshing {
		wait := make(chan refreshOutcome, 1)
		r.queue = append(r.queue, wait)
		r.mu.Unlock()

		select {
		case out := <-wait:
			return out.token, out.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// Another request already refreshed after this one was sent.
	if current := r.client.authorizationToken(ctx); current != "" && current != usedToken {
		r.mu.Unlock()
		return current, nil
	}

	r.refreshing = true
	r.mu.Unlock()

	return r.refresh(ctx, cause)
}

func (r *refresher) refresh(ctx context.Context, cause error) (string, error) {
	c := r.client

	refreshToken, ok := c.storedValue(ctx, credential.KeyRefreshToken)
	if !ok {
		c.logger.Debug("no refresh token stored; rejecting request")
		r.settle(refreshOutcome{err: cause})
		return "", cause
	}

	// The exchange outcome is shared by every queued request, so the caller's
	// cancellation must not decide it.
	exchangeCtx := context.WithoutCancel(ctx)

	token, err := c.exchangeRefreshToken(exchangeCtx, refreshToken)
	if err != nil {
		c.logger.Warn("token refresh failed; clearing session", "error", err)
		if clearErr := credential.Clear(exchangeCtx, c.credentials); clearErr != nil {
			c.logger.Error("failed to clear credentials", "error", clearErr)
		}
		c.setDefaultAuthorization("")
		r.settle(refreshOutcome{err: err})
		c.sessionExpired()
		return "", err
	}

	if err := c.credentials.Set(exchangeCtx, credential.KeyAccessToken, token, c.ttl.Access); err != nil {
		// A stale stored token would shadow the default authorization.
		c.logger.Warn("failed to persist refreshed access token", "error", err)
		if rmErr := c.credentials.Remove(exchangeCtx, credential.KeyAccessToken); rmErr != nil {
			c.logger.Error("failed to drop stale access token", "error", rmErr)
		}
	}
	c.setDefaultAuthorization(token)
	c.logger.Debug("access token refreshed")

	r.settle(refreshOutcome{token: token})
	return token, nil
}

// settle returns the coordinator to idle and releases the queue in arrival order.
func (r *refresher) settle(out refreshOutcome) {
	r.mu.Lock()
	queue := r.queue
	r.queue = nil
	r.refreshing = false
	r.mu.Unlock()

	release(queue, out)
}

func release(queue []chan refreshOutcome, out refreshOutcome) {
	for _, wait := range queue {
		wait <- out
	}
}

// exchangeRefreshToken calls the refresh endpoint directly, outside the 401 recovery path.
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	req, err := newJSONRequest(http.MethodPost, tokenRefreshPath, model.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", err
	}

	resp, err := c.roundTrip(ctx, req, "")
	if err != nil {
		return "", err
	}
	if resp.status < 200 || resp.status >= 300 {
		return "", apierror.FromResponse(resp.status, resp.body)
	}

	var out model.AccessToken
	if err := resp.decode(&out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", ErrInvalidRefreshResponse
	}

	return out.Access, nil
}
