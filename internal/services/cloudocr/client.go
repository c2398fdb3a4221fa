// Package cloudocr talks to the hosted OCR HTTP endpoint that extracts
// text from note photos.
package cloudocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout   = 60 * time.Second
	defaultMaxImageBytes = 10 << 20
)

// Client wraps the cloud OCR extraction API.
type Client struct {
	baseURL       string
	authToken     string
	maxImageBytes int64
	httpClient    *http.Client
}

// Option customizes the OCR client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAuthToken sets the bearer token sent to the OCR endpoint.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = strings.TrimSpace(token)
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMaxImageBytes caps the size of images downloaded for extraction.
func WithMaxImageBytes(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxImageBytes = limit
		}
	}
}

// NewClient constructs an OCR client for the given endpoint.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		maxImageBytes: defaultMaxImageBytes,
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type extractRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType,omitempty"`
}

type extractResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// ExtractText downloads the image at imageURL, submits it to the OCR
// endpoint, and returns the extracted text.
func (c *Client) ExtractText(ctx context.Context, imageURL string) (string, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", errors.New("cloudocr extract: image url required")
	}
	if c.baseURL == "" {
		return "", errors.New("cloudocr extract: base url required")
	}
	image, mimeType, err := c.fetchImage(ctx, imageURL)
	if err != nil {
		return "", err
	}
	payload := extractRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		MimeType: mimeType,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("cloudocr extract: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("cloudocr extract: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudocr extract: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cloudocr extract: read body: %w", err)
	}
	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return "", fmt.Errorf("cloudocr extract: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return "", fmt.Errorf("cloudocr extract: decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		message := strings.TrimSpace(parsed.Error)
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		return "", fmt.Errorf("cloudocr extract: http %d: %s", resp.StatusCode, message)
	}
	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return "", errors.New("cloudocr extract: empty text in response")
	}
	return text, nil
}

func (c *Client) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("cloudocr fetch image: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("cloudocr fetch image: download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", fmt.Errorf("cloudocr fetch image: http %d", resp.StatusCode)
	}
	if resp.ContentLength > c.maxImageBytes {
		return nil, "", fmt.Errorf("cloudocr fetch image: image exceeds %d bytes", c.maxImageBytes)
	}
	limited := io.LimitReader(resp.Body, c.maxImageBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("cloudocr fetch image: read body: %w", err)
	}
	if int64(len(body)) > c.maxImageBytes {
		return nil, "", fmt.Errorf("cloudocr fetch image: image exceeds %d bytes", c.maxImageBytes)
	}
	if len(body) == 0 {
		return nil, "", errors.New("cloudocr fetch image: empty body")
	}
	mimeType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = ""
	}
	return body, mimeType, nil
}
