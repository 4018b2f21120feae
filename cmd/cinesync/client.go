package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/vmunix/cinesync/internal/history"
	"github.com/vmunix/cinesync/internal/library"
)

// Client wraps HTTP calls to the cinesync daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new cinesync API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.send(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.send(http.MethodPut, path, body, result)
}

func (c *Client) send(method, path string, body any, result any) error {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		rd = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return serverError(resp)
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) delete(path string, result any) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return serverError(resp)
	}
	if result != nil && resp.StatusCode == http.StatusOK {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// serverError prefers the API's error message over the raw body.
func serverError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var e struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("server error %d (%s): %s", resp.StatusCode, e.Code, e.Error)
	}
	return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
}

// API response types (mirror server types)

type SyncStatus struct {
	Identity      string    `json:"identity"`
	Authenticated bool      `json:"authenticated"`
	Remote        bool      `json:"remote"`
	Failures      int       `json:"failures"`
	Degraded      bool      `json:"degraded"`
	FailingSince  time.Time `json:"failing_since"`
}

type StatusResponse struct {
	Status    string     `json:"status"`
	Version   string     `json:"version"`
	Sync      SyncStatus `json:"sync"`
	Items     int        `json:"items"`
	Bookmarks int        `json:"bookmarks"`
	Sessions  int        `json:"sessions"`
}

type VerifyResponse struct {
	Identity string `json:"identity"`
	Remote   struct {
		Configured bool   `json:"configured"`
		Reachable  bool   `json:"reachable"`
		Items      int    `json:"items"`
		Error      string `json:"error,omitempty"`
	} `json:"remote"`
	LocalItems int      `json:"local_items"`
	InSync     bool     `json:"in_sync"`
	Problems   []string `json:"problems"`
}

type LibraryResponse struct {
	Identity string         `json:"identity"`
	Items    []library.Item `json:"items"`
	Total    int            `json:"total"`
}

type SearchResponse struct {
	Query   string          `json:"query"`
	Matches []library.Match `json:"matches"`
}

type ImportResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

type BookmarksResponse struct {
	Items []library.Bookmark `json:"items"`
	Total int                `json:"total"`
}

type HistoryResponse struct {
	Sessions []history.Session `json:"sessions"`
	Total    int               `json:"total"`
}

type LikeResponse struct {
	MessageID string `json:"message_id"`
	Liked     bool   `json:"liked"`
}

type LikedResponse struct {
	Messages []history.LikedMessage `json:"messages"`
	Total    int                    `json:"total"`
}

type IdentityResponse struct {
	Identity      string `json:"identity"`
	Authenticated bool   `json:"authenticated"`
	Changed       bool   `json:"changed"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	OccurredAt string `json:"occurred_at"`
	Summary    string `json:"summary,omitempty"`
}

type StreamEvent struct {
	EventType  string          `json:"event_type"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Summary    string          `json:"summary,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type ListEventsResponse struct {
	Items []EventResponse `json:"items"`
	Total int             `json:"total"`
}

// Status returns the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify compares the local library against the remote.
func (c *Client) Verify() (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := c.get("/api/v1/verify", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Library lists the merged view. status may be empty.
func (c *Client) Library(status string, favorites bool) (*LibraryResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if favorites {
		q.Set("favorites", "true")
	}
	path := "/api/v1/library"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp LibraryResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Mutate applies one library mutation and returns the new view.
func (c *Client) Mutate(m library.Mutation) (*LibraryResponse, error) {
	var resp LibraryResponse
	if err := c.post("/api/v1/library/mutations", m, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search ranks library entries by title.
func (c *Client) Search(query string, limit int) (*SearchResponse, error) {
	q := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}
	var resp SearchResponse
	if err := c.get("/api/v1/library/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns library statistics.
func (c *Client) Stats() (*library.Stats, error) {
	var resp library.Stats
	if err := c.get("/api/v1/library/stats", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Export returns the library export document.
func (c *Client) Export() ([]byte, error) {
	var raw json.RawMessage
	if err := c.get("/api/v1/library/export", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Import merges an export document into the library.
func (c *Client) Import(data []byte) (*ImportResponse, error) {
	var resp ImportResponse
	if err := c.post("/api/v1/library/import", data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearLibrary empties the library of the current identity.
func (c *Client) ClearLibrary() error {
	return c.delete("/api/v1/library", nil)
}

// Bookmarks lists the device-local bookmarks.
func (c *Client) Bookmarks() (*BookmarksResponse, error) {
	var resp BookmarksResponse
	if err := c.get("/api/v1/bookmarks", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists chat sessions, optionally filtered by query.
func (c *Client) History(query string) (*HistoryResponse, error) {
	path := "/api/v1/history"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}
	var resp HistoryResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveSession stores a chat session.
func (c *Client) SaveSession(sess history.Session) (*history.SaveResult, error) {
	var resp history.SaveResult
	if err := c.post("/api/v1/history", sess, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Session returns one chat session.
func (c *Client) Session(id string) (*history.Session, error) {
	var resp history.Session
	if err := c.get("/api/v1/history/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSession removes one chat session.
func (c *Client) DeleteSession(id string) error {
	return c.delete("/api/v1/history/"+url.PathEscape(id), nil)
}

// ClearHistory removes every chat session.
func (c *Client) ClearHistory() error {
	return c.delete("/api/v1/history", nil)
}

// ToggleLike flips the liked state of a message.
func (c *Client) ToggleLike(messageID string) (*LikeResponse, error) {
	var resp LikeResponse
	if err := c.post("/api/v1/history/messages/"+url.PathEscape(messageID)+"/like", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Liked lists liked messages.
func (c *Client) Liked() (*LikedResponse, error) {
	var resp LikedResponse
	if err := c.get("/api/v1/history/liked", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Identity returns the current identity.
func (c *Client) Identity() (*IdentityResponse, error) {
	var resp IdentityResponse
	if err := c.get("/api/v1/identity", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login switches the daemon to uid.
func (c *Client) Login(uid string) (*IdentityResponse, error) {
	var resp IdentityResponse
	if err := c.put("/api/v1/identity", map[string]string{"identity": uid}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout switches the daemon back to the guest identity.
func (c *Client) Logout() (*IdentityResponse, error) {
	var resp IdentityResponse
	if err := c.delete("/api/v1/identity", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventsQuery narrows Events and Follow. Zero fields do not filter.
type EventsQuery struct {
	Limit      int
	Since      int64
	EntityType string
	EntityID   string
}

func (q EventsQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Since > 0 {
		v.Set("since", strconv.FormatInt(q.Since, 10))
	}
	if q.EntityType != "" && q.EntityID != "" {
		v.Set("entity_type", q.EntityType)
		v.Set("entity_id", q.EntityID)
	}
	return v
}

// Events returns recent events, or events after q.Since when it is set.
func (c *Client) Events(q EventsQuery) (*ListEventsResponse, error) {
	var resp ListEventsResponse
	if err := c.get("/api/v1/events?"+q.values().Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Follow calls fn for each live change event until ctx is canceled or the
// daemon closes the stream. Only the entity filter of q applies.
func (c *Client) Follow(ctx context.Context, q EventsQuery, fn func(StreamEvent) error) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/v1/events/stream"
	if q.EntityType != "" && q.EntityID != "" {
		wsURL += "?" + url.Values{"entity_type": {q.EntityType}, "entity_id": {q.EntityID}}.Encode()
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer conn.CloseNow()

	for {
		var ev StreamEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
