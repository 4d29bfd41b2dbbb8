// Package apiclient is a typed client for the storefront HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mariotejeda2001/Glazeepink/pkg/api"
)

var (
	// ErrCredentialMissing is returned on 401: the caller must log in.
	ErrCredentialMissing = errors.New("login required")
	// ErrCredentialInvalid is returned on 403: the session is invalid or expired.
	ErrCredentialInvalid = errors.New("session expired or invalid")
	// ErrNotFound is returned on 404.
	ErrNotFound = errors.New("not found")
)

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Client calls the storefront API.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithToken sets the initial bearer credential.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid api url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Token returns the current bearer credential.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer credential.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Register creates an account and stores the returned credential.
func (c *Client) Register(ctx context.Context, req *api.RegisterRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", false, req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Login authenticates and stores the returned credential.
func (c *Client) Login(ctx context.Context, req *api.LoginRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", false, req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Products lists the catalog, filtered by category when it is not empty.
func (c *Client) Products(ctx context.Context, category string) (api.Products, error) {
	path := "/api/products"
	if category != "" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	var resp api.Products
	if err := c.do(ctx, http.MethodGet, path, false, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Product returns a single product.
func (c *Client) Product(ctx context.Context, id int64) (*api.Product, error) {
	var resp api.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+strconv.FormatInt(id, 10), false, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePaymentIntent requests an intent for amount and returns its client secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal) (string, error) {
	var resp api.PaymentIntentResponse
	if err := c.do(ctx, http.MethodPost, "/create-payment-intent", false, &api.PaymentIntentRequest{Amount: amount}, &resp); err != nil {
		return "", err
	}
	return resp.ClientSecret, nil
}

// RecordOrder records a paid order.
func (c *Client) RecordOrder(ctx context.Context, req *api.OrderRequest) (*api.Order, error) {
	var resp api.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", true, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Orders returns the caller's order history, newest first.
func (c *Client) Orders(ctx context.Context) (api.Orders, error) {
	var resp api.Orders
	if err := c.do(ctx, http.MethodGet, "/api/orders", true, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, authed bool, in api.Encoder, out api.Decoder) error {
	var body io.Reader
	if in != nil {
		body = bytes.NewReader(api.Marshal(in))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); authed && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}
	if err := api.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

func statusError(code int, body []byte) error {
	var apiErr api.Error
	msg := http.StatusText(code)
	if err := api.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}
	switch code {
	case http.StatusUnauthorized:
		return errors.Wrap(ErrCredentialMissing, msg)
	case http.StatusForbidden:
		return errors.Wrap(ErrCredentialInvalid, msg)
	case http.StatusNotFound:
		return errors.Wrap(ErrNotFound, msg)
	default:
		return &StatusError{StatusCode: code, Message: msg}
	}
}
