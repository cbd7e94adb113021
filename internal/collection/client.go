package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequestError is a failed platform request with a message fit for showing
// to a person.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// IsNotFound reports whether the error is a 404 from the platform.
func IsNotFound(err error) bool {
	re, ok := err.(*RequestError)
	return ok && re.Status == http.StatusNotFound
}

// TokenProvider returns the current bearer token, or "" when signed out.
type TokenProvider func() string

// Client talks to the platform's collection REST surface.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenProvider
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenProvider sets the bearer token source. Requests without a token
// are sent unauthenticated; collection reads do not require one.
func WithTokenProvider(p TokenProvider) Option {
	return func(c *Client) { c.token = p }
}

// NewClient creates a collection client for the platform at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the platform base URL the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Message: "Could not reach the server. Check your connection and try again."}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Status: resp.StatusCode, Message: "The server response could not be read."}
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}

	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return &RequestError{Status: resp.StatusCode, Message: "The server returned an unexpected response."}
		}
	}
	return nil
}

// decodeError turns a platform error payload into a RequestError, falling
// back to a generic message per status class.
func decodeError(status int, raw []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return &RequestError{Status: status, Message: payload.Error}
	}

	switch {
	case status == http.StatusUnauthorized:
		return &RequestError{Status: status, Message: "You need to sign in to do that."}
	case status == http.StatusForbidden:
		return &RequestError{Status: status, Message: "You do not have permission to do that."}
	case status == http.StatusNotFound:
		return &RequestError{Status: status, Message: "That item no longer exists."}
	case status == http.StatusTooManyRequests:
		return &RequestError{Status: status, Message: "Slow down a little and try again."}
	case status >= 500:
		return &RequestError{Status: status, Message: "Something went wrong on the server. Try again later."}
	}
	return &RequestError{Status: status, Message: "The request could not be completed."}
}

// Fetch loads the records of a collection matching the filter, in the given
// order, into dest (a pointer to a slice).
func (c *Client) Fetch(ctx context.Context, name string, f Filter, order Order, dest any) error {
	query := url.Values{}
	if !f.IsZero() {
		query.Set("filter", f.Encode())
	}
	if order != "" {
		query.Set("order", string(order))
	}
	return c.do(ctx, http.MethodGet, "/api/collections/"+name, query, nil, dest)
}

// Insert creates a record and decodes the stored row (including generated
// fields) into dest when non-nil.
func (c *Client) Insert(ctx context.Context, name string, record, dest any) error {
	return c.do(ctx, http.MethodPost, "/api/collections/"+name, nil, record, dest)
}

// Update patches the record with the given id.
func (c *Client) Update(ctx context.Context, name, id string, patch, dest any) error {
	return c.do(ctx, http.MethodPatch, "/api/collections/"+name+"/"+id, nil, patch, dest)
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, name, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/collections/"+name+"/"+id, nil, nil, nil)
}

// Post sends an arbitrary JSON request against the platform API. Auth and
// admin endpoints share the client's base URL and token handling.
func (c *Client) Post(ctx context.Context, path string, body, dest any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, dest)
}

// Fetch is the typed convenience wrapper over Client.Fetch.
func Fetch[T any](ctx context.Context, c *Client, name string, f Filter, order Order) ([]T, error) {
	var out []T
	if err := c.Fetch(ctx, name, f, order, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
