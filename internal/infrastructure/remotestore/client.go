// Package remotestore talks to a hosted PostgREST-style data store over HTTP and
// exposes it as a credit store.
package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/auth"
)

const restPrefix = "/rest/v1/"

// Config holds the remote store connection settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// APIError is a non-2xx answer from the remote store
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote store: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote store: HTTP %d", e.Status)
}

// Unwrap maps server-side and availability failures to shared.ErrStoreUnavailable
func (e *APIError) Unwrap() error {
	if e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests {
		return shared.ErrStoreUnavailable
	}
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return shared.ErrUnauthorized
	}
	return nil
}

// Client is a generic read/insert/update client for the remote store.
// It is safe for concurrent use; WithToken returns a copy bound to one caller.
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Client
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote store: invalid base URL %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// WithToken returns a client that authenticates as the caller owning token
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	return &clone
}

// Query reads rows of collection matching q into dst (a pointer to a slice)
func (c *Client) Query(ctx context.Context, collection string, q *Query, dst any) error {
	_, body, err := c.do(ctx, http.MethodGet, collection, q, nil, nil)
	if err != nil {
		return err
	}
	return decode(body, dst)
}

// Count returns the number of rows of collection matching q
func (c *Client) Count(ctx context.Context, collection string, q *Query) (int64, error) {
	header := http.Header{}
	header.Set("Prefer", "count=exact")
	resp, _, err := c.do(ctx, http.MethodHead, collection, q, nil, header)
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.Header.Get("Content-Range"))
}

// Insert inserts row (or a slice of rows) and decodes the stored representation into dst when non-nil
func (c *Client) Insert(ctx context.Context, collection string, row any, dst any) error {
	header := http.Header{}
	header.Set("Prefer", "return=representation")
	_, body, err := c.do(ctx, http.MethodPost, collection, nil, row, header)
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	return decode(body, dst)
}

// Update applies patch to the rows matching q and returns how many rows changed.
// A filter that matches nothing is not an error: the caller decides what zero means.
func (c *Client) Update(ctx context.Context, collection string, patch any, q *Query) (int, error) {
	header := http.Header{}
	header.Set("Prefer", "return=representation")
	_, body, err := c.do(ctx, http.MethodPatch, collection, q, patch, header)
	if err != nil {
		return 0, err
	}
	var rows []json.RawMessage
	if err := decode(body, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (c *Client) do(ctx context.Context, method, collection string, q *Query, payload any, header http.Header) (*http.Response, []byte, error) {
	endpoint := c.baseURL + restPrefix + url.PathEscape(collection)
	if qs := q.Encode(); qs != "" {
		endpoint += "?" + qs
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("remote store: failed to encode body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("remote store: failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrStoreUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return nil, nil, apiErr
	}
	return resp, body, nil
}

// bearer picks the explicit token, then the caller's token from ctx, then the API key
func (c *Client) bearer(ctx context.Context) string {
	if c.token != "" {
		return c.token
	}
	if token := auth.BearerToken(ctx); token != "" {
		return token
	}
	return c.apiKey
}

func decode(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("[]")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("remote store: failed to decode response: %w", err)
	}
	return nil
}

// parseContentRange reads the total from "0-24/3573" or "*/0"
func parseContentRange(value string) (int64, error) {
	idx := strings.LastIndex(value, "/")
	if idx < 0 || idx == len(value)-1 {
		return 0, fmt.Errorf("remote store: missing count in Content-Range %q", value)
	}
	total, err := strconv.ParseInt(value[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("remote store: invalid Content-Range %q: %w", value, err)
	}
	return total, nil
}
