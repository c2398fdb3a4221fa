// Package client provides typed HTTP access to the daemon API for the CLI.
package client

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

	"readinghub/internal/api"
)

// Client talks to the daemon's admin HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New builds a client for the daemon listening at baseURL. The token is
// sent as a bearer credential when non-empty.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var resp api.DaemonStatus
	if err := c.get(ctx, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PendingCount reports how many notes await transcription.
func (c *Client) PendingCount(ctx context.Context) (int, error) {
	var resp api.PendingResponse
	if err := c.get(ctx, "/api/ocr/pending", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Pending, nil
}

// RunBatch triggers one OCR batch over at most maxItems notes.
func (c *Client) RunBatch(ctx context.Context, maxItems int) (*api.BatchResult, error) {
	body := map[string]int{"max_items": maxItems}
	var resp api.BatchResult
	if err := c.post(ctx, "/api/ocr/run", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry resets failed transcriptions (optionally a subset) and reprocesses them.
func (c *Client) Retry(ctx context.Context, noteIDs []string) (*api.BatchResult, error) {
	body := map[string][]string{"note_ids": noteIDs}
	var resp api.BatchResult
	if err := c.post(ctx, "/api/ocr/retry", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TranscriptionStatuses polls the OCR status for a set of notes.
func (c *Client) TranscriptionStatuses(ctx context.Context, noteIDs []string) (map[string]string, error) {
	query := url.Values{}
	for _, id := range noteIDs {
		query.Add("note_id", id)
	}
	var resp api.TranscriptionStatusesResponse
	if err := c.get(ctx, "/api/ocr/transcriptions", query, &resp); err != nil {
		return nil, err
	}
	return resp.Statuses, nil
}

// Transcription fetches the full transcription for one note.
func (c *Client) Transcription(ctx context.Context, noteID string) (*api.Transcription, error) {
	query := url.Values{"note_id": {noteID}}
	var resp api.TranscriptionResponse
	if err := c.get(ctx, "/api/ocr/transcription", query, &resp); err != nil {
		return nil, err
	}
	return &resp.Transcription, nil
}

// UsageStats retrieves per-user OCR counters.
func (c *Client) UsageStats(ctx context.Context) ([]api.UsageStat, error) {
	var resp api.UsageStatsResponse
	if err := c.get(ctx, "/api/ocr/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

// Logs retrieves recent OCR processing log rows.
func (c *Client) Logs(ctx context.Context, limit int) ([]api.LogEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp api.LogListResponse
	if err := c.get(ctx, "/api/ocr/logs", query, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// NoteQuery filters note listings.
type NoteQuery struct {
	UserID string
	BookID string
	Type   string
	Limit  int
}

// Notes lists notes matching the query.
func (c *Client) Notes(ctx context.Context, q NoteQuery) ([]api.Note, error) {
	query := url.Values{}
	if q.UserID != "" {
		query.Set("user_id", q.UserID)
	}
	if q.BookID != "" {
		query.Set("book_id", q.BookID)
	}
	if q.Type != "" {
		query.Set("type", q.Type)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	var resp api.NoteListResponse
	if err := c.get(ctx, "/api/notes", query, &resp); err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

// SystemStats retrieves hub-wide aggregates.
func (c *Client) SystemStats(ctx context.Context) (*api.SystemStats, error) {
	var resp api.SystemStats
	if err := c.get(ctx, "/api/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification(ctx context.Context) (*api.TestNotificationResponse, error) {
	var resp api.TestNotificationResponse
	if err := c.post(ctx, "/api/notify/test", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ShareCard downloads the rendered PNG card for a public note.
func (c *Client) ShareCard(ctx context.Context, noteID string) ([]byte, error) {
	query := url.Values{"note_id": {noteID}}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/share/card", query, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
