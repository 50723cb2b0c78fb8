// Package rest is a small JSON-over-HTTP client shared by the provider
// adapters and the public IP retriever.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
)

// DefaultTimeout bounds every single request.
const DefaultTimeout = 10 * time.Second

// Client sends requests relative to a base URL with a fixed set of headers.
type Client struct {
	baseURL string
	header  http.Header
	timeout time.Duration
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  make(http.Header),
		timeout: DefaultTimeout,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &apierror.Error{
			Kind:       apierror.ErrUnexpectedResponse,
			StatusCode: r.StatusCode,
			Status:     r.Status,
			Details:    apierror.Details{Message: "malformed response body"},
			Body:       r.Body,
			Cause:      err,
		}
	}
	return nil
}

// Do sends a request. params, when non-nil, is encoded into the query string
// with go-querystring `url` tags; body, when non-nil, is sent as JSON.
// Any HTTP status is returned without error; classifying it is the caller's job.
func (c *Client) Do(ctx context.Context, method, path string, params, body any) (*Response, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return nil, fmt.Errorf("encode query for %s %s: %w", method, path, err)
		}
		if encoded := values.Encode(); encoded != "" {
			sep := "?"
			if strings.Contains(url, "?") {
				sep = "&"
			}
			url += sep + encoded
		}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &apierror.Error{
				Kind:    apierror.ErrUpstreamTimeout,
				Details: apierror.Details{Message: fmt.Sprintf("%s %s: no response within %s", method, path, c.timeout)},
				Cause:   err,
			}
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response body: %w", method, path, err)
	}

	return &Response{StatusCode: resp.StatusCode, Status: resp.Status, Body: data}, nil
}
