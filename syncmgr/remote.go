// ABOUTME: HTTP client for the TradeHand REST API
// ABOUTME: Issues create/update/delete calls and classifies failures into the sync taxonomy
package syncmgr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tradehand/tradehand/models"
)

// RemoteAPI is the slice of the REST API the sync engine needs. Create
// responses must return the durable server identifier; failures must be
// classifiable as transient or permanent.
type RemoteAPI interface {
	CreateRecord(ctx context.Context, entity models.EntityType, payload []byte) (string, error)
	UpdateRecord(ctx context.Context, entity models.EntityType, id string, payload []byte) error
	DeleteRecord(ctx context.Context, entity models.EntityType, id string) error
}

// Client talks to the TradeHand API server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a remote API client for the given server.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// do issues a request and returns the response body. Requests that never
// reach the server come back as TransientError; non-2xx statuses are
// classified by classifyStatus.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// CreateRecord POSTs a new record and returns the server-assigned id.
func (c *Client) CreateRecord(ctx context.Context, entity models.EntityType, payload []byte) (string, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/"+entity.APIPath(), payload)
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create response missing server id")
	}
	return created.ID, nil
}

// UpdateRecord PUTs the full record snapshot, overwriting server state.
func (c *Client) UpdateRecord(ctx context.Context, entity models.EntityType, id string, payload []byte) error {
	_, err := c.do(ctx, http.MethodPut, "/api/"+entity.APIPath()+"/"+id, payload)
	return err
}

// DeleteRecord removes the record on the server.
func (c *Client) DeleteRecord(ctx context.Context, entity models.EntityType, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/"+entity.APIPath()+"/"+id, nil)
	return err
}
