package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	URI     string
	Timeout time.Duration
}

// Client talks to an Iceberg REST catalog. Only the config endpoint is used;
// table listing stays out of the gateway until catalog integration lands.
type Client struct {
	baseURL string
	client  *http.Client
}

type CatalogConfig struct {
	Defaults  map[string]string `json:"defaults"`
	Overrides map[string]string `json:"overrides"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URI), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("catalog uri is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid catalog uri %q: scheme must be http or https", cfg.URI)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: timeout}}, nil
}

func (c *Client) Config(ctx context.Context) (CatalogConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/config", nil)
	if err != nil {
		return CatalogConfig{}, fmt.Errorf("build catalog config request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return CatalogConfig{}, fmt.Errorf("request catalog config: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CatalogConfig{}, fmt.Errorf("read catalog config body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return CatalogConfig{}, fmt.Errorf("catalog config failed status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed CatalogConfig
	if err := json.Unmarshal(body, &parsed); err != nil {
		return CatalogConfig{}, fmt.Errorf("decode catalog config: %w", err)
	}
	return parsed, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Config(ctx)
	return err
}
