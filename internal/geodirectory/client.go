// Package geodirectory is the HTTP client of the remote geo-directory, the
// service of record for entry geometries and tags.
package geodirectory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"geodirectory-sync/internal/domain"
)

const maxErrorBody = 512

// Client is the contract the sync service relies on. Every method returns a
// *TransportError when the remote call fails.
type Client interface {
	GetEntry(ctx context.Context, id string) (*domain.Entry, error)
	CreateEntry(ctx context.Context, geometry domain.Geometry, tags []string) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, id string, geometry domain.Geometry, tags []string) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	Closest(ctx context.Context, id string, tags []string) (*domain.Entry, error)
}

type entryRequest struct {
	Geometry domain.Geometry `json:"geometry"`
	Tags     []string        `json:"tags"`
}

type httpClient struct {
	baseURL string
	client  *http.Client
	tokens  *tokenSource
}

// NewClient returns a client for the geo-directory API rooted at baseURL.
// When username is empty requests are sent without credentials.
func NewClient(baseURL, username, password string, timeout time.Duration) Client {
	httpc := &http.Client{Timeout: timeout}
	base := strings.TrimRight(baseURL, "/")

	return &httpClient{
		baseURL: base,
		client:  httpc,
		tokens:  newTokenSource(base, username, password, httpc),
	}
}

func (c *httpClient) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	var entry domain.Entry
	if err := c.do(ctx, "get_entry", http.MethodGet, entryPath(id), nil, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *httpClient) CreateEntry(ctx context.Context, geometry domain.Geometry, tags []string) (*domain.Entry, error) {
	body := &entryRequest{Geometry: geometry, Tags: tags}

	var entry domain.Entry
	if err := c.do(ctx, "create_entry", http.MethodPost, "/geodirectory/entries/", nil, body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *httpClient) UpdateEntry(ctx context.Context, id string, geometry domain.Geometry, tags []string) (*domain.Entry, error) {
	body := &entryRequest{Geometry: geometry, Tags: tags}

	var entry domain.Entry
	if err := c.do(ctx, "update_entry", http.MethodPut, entryPath(id), nil, body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *httpClient) DeleteEntry(ctx context.Context, id string) error {
	return c.do(ctx, "delete_entry", http.MethodDelete, entryPath(id), nil, nil, nil)
}

func (c *httpClient) Closest(ctx context.Context, id string, tags []string) (*domain.Entry, error) {
	query := url.Values{}
	for _, tag := range tags {
		query.Add("tags", tag)
	}

	var entry domain.Entry
	if err := c.do(ctx, "closest", http.MethodGet, entryPath(id)+"closest/", query, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func entryPath(id string) string {
	return fmt.Sprintf("/geodirectory/entries/%s/", url.PathEscape(id))
}

func (c *httpClient) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(msg))),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid response body: %w", err)}
	}

	return nil
}
