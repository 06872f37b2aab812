// Package apiclient is the single gateway to the marketplace REST API. It
// attaches the stored bearer credential to every call and recovers from an
// expired credential by refreshing it once and replaying the call.
package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/evcharge-client/internal/config"
	"github.com/jrsteele09/evcharge-client/session"
)

const (
	// DefaultLoginPath is where the unauthenticated transition sends the user
	DefaultLoginPath = "/login"
	// RefreshPath is the credential refresh endpoint, relative to the API base
	RefreshPath = "/auth/refresh"
)

// Redirector performs the process-wide navigation triggered when a session
// cannot be recovered.
type Redirector interface {
	Redirect(ctx context.Context, path string)
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(ctx context.Context, path string)

func (f RedirectFunc) Redirect(ctx context.Context, path string) { f(ctx, path) }

type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	redirector Redirector
	loginPath  string
	coalesce   bool
	refreshes  singleflight.Group
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each HTTP exchange. The client imposes no deadline otherwise.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: d}
	}
}

func WithRedirector(r Redirector) Option {
	return func(c *Client) {
		c.redirector = r
	}
}

func WithLoginPath(path string) Option {
	return func(c *Client) {
		c.loginPath = path
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRefreshCoalescing controls whether concurrent 401s holding the same stale
// credential share one refresh call. When off every call refreshes on its own
// and the last write to the store wins.
func WithRefreshCoalescing(on bool) Option {
	return func(c *Client) {
		c.coalesce = on
	}
}

// New creates a client for baseURL, the API origin plus prefix (e.g. "http://localhost:8080/api").
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		store:      store,
		loginPath:  DefaultLoginPath,
		coalesce:   true,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig creates a client from the API section of the configuration.
func NewFromConfig(cfg config.APIConfig, store session.Store, opts ...Option) *Client {
	base := []Option{WithRefreshCoalescing(cfg.GetCoalesceRefresh())}
	if d := cfg.GetRequestTimeout(); d > 0 {
		base = append(base, WithTimeout(d))
	}
	return New(cfg.GetBaseURL(), store, append(base, opts...)...)
}

// BaseURL returns the origin plus API prefix requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Dispatch sends method path with body. See NewRequest for body encoding.
func (c *Client) Dispatch(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	req, err := NewRequest(method, path, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Dispatch(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Dispatch(ctx, http.MethodPost, path, body, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Dispatch(ctx, http.MethodPut, path, body, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Dispatch(ctx, http.MethodDelete, path, nil, opts...)
}

// GetJSON, PostJSON and friends dispatch and decode the response body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return decodeInto(c.Get(ctx, path, opts...))(out)
}

func (c *Client) PostJSON(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return decodeInto(c.Post(ctx, path, body, opts...))(out)
}

func (c *Client) PutJSON(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return decodeInto(c.Put(ctx, path, body, opts...))(out)
}

func (c *Client) DeleteJSON(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return decodeInto(c.Delete(ctx, path, opts...))(out)
}

func decodeInto(resp *Response, err error) func(out any) error {
	return func(out any) error {
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		return resp.Decode(out)
	}
}
