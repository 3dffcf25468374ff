// Package searchapi is a knowledge-base search collaborator backed by a
// remote REST search service (Azure AI Search wire format).
package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAPIVersion is sent when no api-version is configured.
const DefaultAPIVersion = "2023-11-01"

// Client searches one index of a remote search service.
type Client struct {
	endpoint   string
	index      string
	apiKey     string
	apiVersion string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	logger     *zap.SugaredLogger
	timeout    time.Duration
	apiVersion string
}

// New creates a Client for the given service endpoint and index. The
// apiKey is sent as an api-key header on every request.
func New(endpoint, index, apiKey string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("searchapi: endpoint is required")
	}
	if index == "" {
		return nil, fmt.Errorf("searchapi: index is required")
	}

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	version := cfg.apiVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		index:      index,
		apiKey:     apiKey,
		apiVersion: version,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("searchapi: negative timeout %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

// WithAPIVersion overrides the api-version query parameter.
func WithAPIVersion(v string) Option {
	return func(cfg *clientConfig) error {
		cfg.apiVersion = v
		return nil
	}
}

func (c *Client) indexURL(path string) string {
	q := url.Values{"api-version": {c.apiVersion}}
	return fmt.Sprintf("%s/indexes/%s%s?%s", c.endpoint, url.PathEscape(c.index), path, q.Encode())
}

// doJSON executes an HTTP request and decodes the JSON response into dst.
// If the response has an error status, it returns an *APIError.
func (c *Client) doJSON(ctx context.Context, method, u, operation string, payload, dst any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", operation, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", operation, err)
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugw("API request", "operation", operation, "method", method, "index", c.index)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", operation, err)
	}
	defer resp.Body.Close()

	c.logger.Debugw("API response", "operation", operation, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		var errRS errorResponse
		if json.Unmarshal(respBody, &errRS) == nil && errRS.Error.Message != "" {
			return newAPIError(operation, resp.StatusCode, errRS.Error.Code, errRS.Error.Message)
		}
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = resp.Status
		}
		return newAPIError(operation, resp.StatusCode, "", msg)
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("%s: decode response: %w", operation, err)
		}
	}
	return nil
}
