// Package remote is the HTTP client for the score API and the connectivity
// probe that guards a sync pass.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Guizzs26/scorebook-sync/internal/models"
)

// Error codes returned by the score API.
const (
	CodeConflict        = "conflict"
	CodeVersionMismatch = "version_mismatch"
	CodeNotFound        = "not_found"
	CodeBadRequest      = "bad_request"
	CodeInternal        = "internal"
)

// APIError is a structured error response. Synchronizers switch on it via
// errors.Is(err, models.ErrConflict) rather than parsing Message.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.Status)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case models.ErrConflict:
		return e.Status == http.StatusConflict || e.Code == CodeConflict || e.Code == CodeVersionMismatch
	case models.ErrNotFound:
		return e.Status == http.StatusNotFound || e.Code == CodeNotFound
	}
	return false
}

// Client talks to the score API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type idResponse struct {
	ID string `json:"id"`
}

// AddBall records a delivery on the remote match and returns the server's ball id.
func (c *Client) AddBall(ctx context.Context, matchID string, fields json.RawMessage) (string, error) {
	var resp idResponse
	if err := c.do(ctx, http.MethodPost, "/matches/"+url.PathEscape(matchID)+"/balls", fields, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdateMatch applies a partial update. A "version" field, when present, is
// checked by the server and a mismatch comes back as models.ErrConflict.
func (c *Client) UpdateMatch(ctx context.Context, matchID string, fields json.RawMessage) error {
	return c.do(ctx, http.MethodPatch, "/matches/"+url.PathEscape(matchID), fields, nil)
}

func (c *Client) CreateMatch(ctx context.Context, fields json.RawMessage) (string, error) {
	var resp idResponse
	if err := c.do(ctx, http.MethodPost, "/matches", fields, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) GetMatch(ctx context.Context, matchID string) (models.Document, error) {
	var doc models.Document
	if err := c.do(ctx, http.MethodGet, "/matches/"+url.PathEscape(matchID), nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Health hits /health once.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body json.RawMessage, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		if json.Unmarshal(respBody, &env) == nil && env.Error.Code != "" {
			env.Error.Status = resp.StatusCode
			return &env.Error
		}
		return &APIError{Status: resp.StatusCode, Code: codeForStatus(resp.StatusCode), Message: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusConflict:
		return CodeConflict
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusBadRequest:
		return CodeBadRequest
	}
	return CodeInternal
}
