// Package apiclient is the authenticated HTTP client for the Racoonsmeal API.
//
// Every request carries the stored access token. A 401 on a first attempt hands the
// request to a single-flight refresh coordinator; once a new access token is minted
// the request is replayed exactly once.
package apiclient

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"racoonsmeal/internal/credential"
)

const (
	registerPath     = "/api/users/register/"
	loginPath        = "/api/users/login/"
	tokenRefreshPath = "/api/users/token/refresh/"
	profilePathFmt   = "/api/users/profile/%s/"

	defaultTimeout = 30 * time.Second
)

// Client is the API client for the Racoonsmeal backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials credential.Store
	ttl         credential.TTLs
	logger      *slog.Logger
	refresher   *refresher

	mu          sync.RWMutex
	defaultAuth string
	onExpired   func()
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithTTLs(ttl credential.TTLs) Option {
	return func(c *Client) {
		c.ttl = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client bound to baseURL that reads and writes tokens through credentials.
func New(baseURL string, credentials credential.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: defaultTimeout},
		credentials: credentials,
		ttl:         credential.DefaultTTLs(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.refresher = &refresher{client: c}

	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnSessionExpired registers the hook run after a refresh exchange fails and the
// stored credentials have been wiped.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

func (c *Client) sessionExpired() {
	c.mu.RLock()
	fn := c.onExpired
	c.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// DefaultAuthorization returns the bearer token attached when no access token is stored.
func (c *Client) DefaultAuthorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultAuth
}

func (c *Client) setDefaultAuthorization(token string) {
	c.mu.Lock()
	c.defaultAuth = token
	c.mu.Unlock()
}
