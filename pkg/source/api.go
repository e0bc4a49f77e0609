package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// APIClient reads quota details from the JSON usage endpoint.
type APIClient struct {
	url    string
	client *http.Client
}

// NewAPIClient creates an API client with a bounded per-call timeout.
func NewAPIClient(url string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchDetails reads a full snapshot for the series.
func (c *APIClient) FetchDetails(ctx context.Context, name, token string) (model.Snapshot, error) {
	data, err := c.fetch(ctx, token)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap := ExtractDetails(name, data)
	snap.Timestamp = time.Now()
	return snap, nil
}

// FetchRemaining reads only the remaining amount, the cheap variant.
func (c *APIClient) FetchRemaining(ctx context.Context, name, token string) (float64, error) {
	data, err := c.fetch(ctx, token)
	if err != nil {
		return 0, err
	}
	v, ok := ExtractRemaining(data)
	if !ok {
		return 0, fmt.Errorf("series %s: no remaining amount in payload", name)
	}
	return v, nil
}

func (c *APIClient) fetch(ctx context.Context, token string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "quotawatch/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch usage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("usage endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read usage response: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse usage response: %w", err)
	}

	// Some deployments wrap the useful fields in a data envelope.
	if data, ok := payload["data"].(map[string]any); ok {
		return data, nil
	}
	return payload, nil
}
