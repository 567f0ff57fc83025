package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client queries a remote fully-booked endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for endpoint, e.g. "http://localhost:8080/api/v1/exec".
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetFullyBookedDates lets the client stand in for an in-process Service.
func (c *Client) GetFullyBookedDates(ctx context.Context) ([]string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid availability endpoint: %w", err)
	}
	q := u.Query()
	q.Set("action", ActionGetFullyBookedDates)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build availability request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrQueryFailed, resp.StatusCode)
	}

	var envelope struct {
		Success bool     `json:"success"`
		Data    []string `json:"data"`
		Error   string   `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrQueryFailed, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: %s", ErrQueryFailed, envelope.Error)
	}
	if envelope.Data == nil {
		envelope.Data = []string{}
	}
	return envelope.Data, nil
}
