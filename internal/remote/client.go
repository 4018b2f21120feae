package remote

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

	"github.com/vmunix/cinesync/internal/library"
)

// Client is a Store reached over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the document server at baseURL.
// token is sent as a bearer token when set.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) libraryURL(userID string) string {
	return c.baseURL + "/remote/v1/users/" + url.PathEscape(userID) + "/library"
}

// LoadLibrary fetches the user's library.
func (c *Client) LoadLibrary(ctx context.Context, userID string) ([]library.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.libraryURL(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}

	var doc LibraryDocument
	if err := c.do(req, &doc); err != nil {
		return nil, err
	}
	if doc.Items == nil {
		doc.Items = []library.Item{}
	}
	return doc.Items, nil
}

// SaveLibrary replaces the user's library.
func (c *Client) SaveLibrary(ctx context.Context, userID string, items []library.Item) error {
	if items == nil {
		items = []library.Item{}
	}
	body, err := json.Marshal(LibraryDocument{Items: items})
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.libraryURL(userID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, result any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if result != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
