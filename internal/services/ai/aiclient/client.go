// Package aiclient calls the AI sidecar over HTTP.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/louisbranch/skillswap/internal/platform/timeouts"
)

// Labels returned by /moderate.
const (
	LabelSafe   = "SAFE"
	LabelUnsafe = "UNSAFE"
)

// Verdict is the sidecar moderation result.
type Verdict struct {
	Label      string `json:"label"`
	Categories string `json:"categories"`
}

// Unsafe reports whether the sidecar flagged the text.
func (v Verdict) Unsafe() bool {
	return strings.EqualFold(strings.TrimSpace(v.Label), LabelUnsafe)
}

// Config configures the sidecar client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client is a thin JSON client for the AI sidecar.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client. The default HTTP client times out after
// timeouts.AIRequest.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("ai base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.AIRequest}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// Moderate classifies text.
func (c *Client) Moderate(ctx context.Context, text string) (Verdict, error) {
	var verdict Verdict
	if err := c.post(ctx, "/moderate", map[string]string{"text": text}, &verdict); err != nil {
		return Verdict{}, err
	}
	verdict.Label = strings.ToUpper(strings.TrimSpace(verdict.Label))
	return verdict, nil
}

// Summarize returns a summary of a session transcript.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	var payload struct {
		Summary string `json:"summary"`
	}
	if err := c.post(ctx, "/summarize", map[string]string{"transcript": transcript}, &payload); err != nil {
		return "", err
	}
	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		return "", fmt.Errorf("ai summarize returned empty summary")
	}
	return summary, nil
}

// Health checks the sidecar health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ai health request failed: %w", err)
	}
	defer res.Body.Close()
	return checkStatus("health", res)
}

func (c *Client) post(ctx context.Context, path string, body any, dst any) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("ai client is not configured")
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ai %s request failed: %w", path, err)
	}
	defer res.Body.Close()
	if err := checkStatus(path, res); err != nil {
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func checkStatus(op string, res *http.Response) error {
	if res.StatusCode == http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err != nil {
		return fmt.Errorf("read ai %s error body: %w", op, err)
	}
	return fmt.Errorf("ai %s status %d: %s", op, res.StatusCode, strings.TrimSpace(string(body)))
}
