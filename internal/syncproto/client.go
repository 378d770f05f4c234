package syncproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// APIError is returned by Client.do when the server answers with a
// non-2xx status or SyncResponse.OK is false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sync api error (status %d): %s", e.StatusCode, e.Message)
}

// Client is the thin HTTP transport a Gateway drives: one POST endpoint
// carrying every SyncRequest kind, mirroring the single do() helper
// pattern used for every other endpoint method in this codebase's HTTP
// clients.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Send(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode sync request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/meta_request", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sync request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send sync request: %w", err)
	}
	defer httpResp.Body.Close()

	var resp SyncResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Message: resp.Error}
	}
	if !resp.OK {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Message: resp.Error}
	}
	return &resp, nil
}
