// Package bitquery implements the GraphQL source clients for latest trades,
// liquidity pools and token launches.
package bitquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"launchpad-feed/internal/domain"
)

// Default configuration values.
const (
	DefaultEndpoint    = "https://streaming.bitquery.io/eap"
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 0
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0

	maxResponseBytes = 8 << 20
)

// HTTPClient implements Upstream over a single GraphQL endpoint.
type HTTPClient struct {
	endpoint    string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	logger      *zap.Logger
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts. Zero disables retries.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// NewHTTPClient creates a new Bitquery GraphQL client.
func NewHTTPClient(endpoint, apiKey string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    strings.TrimSpace(endpoint),
		apiKey:      strings.TrimSpace(apiKey),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Validate reports a configuration error if the client cannot authenticate.
func (c *HTTPClient) Validate() error {
	if c.endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// LatestTrades runs getLatestTrades.
func (c *HTTPClient) LatestTrades(ctx context.Context, limit int) (*TradesResponse, error) {
	var out TradesResponse
	vars := map[string]any{"limit": normalizeLimit(limit)}
	if err := c.query(ctx, domain.SourceTrades, OpLatestTrades, latestTradesQuery, vars, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LiquidityPools runs getLiquidityPools.
func (c *HTTPClient) LiquidityPools(ctx context.Context) (*PoolsResponse, error) {
	var out PoolsResponse
	if err := c.query(ctx, domain.SourcePools, OpLiquidityPools, liquidityPoolsQuery, map[string]any{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TokenLaunches runs getTokenLaunches.
func (c *HTTPClient) TokenLaunches(ctx context.Context, limit int) (*LaunchesResponse, error) {
	var out LaunchesResponse
	vars := map[string]any{"limit": normalizeLimit(limit)}
	if err := c.query(ctx, domain.SourceLaunches, OpTokenLaunches, tokenLaunchesQuery, vars, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// query performs one GraphQL POST, with optional retries and exponential
// backoff, and decodes the data object into result. Every failure is a
// *SourceError.
func (c *HTTPClient) query(ctx context.Context, src domain.Source, op, gql string, variables map[string]any, result any) error {
	if err := c.Validate(); err != nil {
		return &SourceError{Source: src, Kind: KindConfig, Err: err}
	}

	body, err := json.Marshal(graphQLRequest{Query: gql, OperationName: op, Variables: variables})
	if err != nil {
		return &SourceError{Source: src, Kind: KindDecode, Err: fmt.Errorf("marshal request: %w", err)}
	}

	delay := c.retryDelay
	var lastErr *SourceError

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return classifyTransport(src, ctx.Err())
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		start := time.Now()
		lastErr = c.do(ctx, src, body, result)
		c.logger.Debug("bitquery request",
			zap.String("source", src.String()),
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("duration", time.Since(start)),
			zap.Bool("ok", lastErr == nil),
		)
		if lastErr == nil {
			return nil
		}
		if !lastErr.retryable() || ctx.Err() != nil {
			return lastErr
		}
	}

	return lastErr
}

func (c *HTTPClient) do(ctx context.Context, src domain.Source, body []byte, result any) *SourceError {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &SourceError{Source: src, Kind: KindConfig, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransport(src, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classifyTransport(src, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SourceError{
			Source: src,
			Kind:   KindHTTPStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status: %s", truncate(respBody, 256)),
		}
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return &SourceError{Source: src, Kind: KindDecode, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	noData := len(envelope.Data) == 0 || bytes.Equal(bytes.TrimSpace(envelope.Data), []byte("null"))
	if len(envelope.Errors) > 0 && noData {
		return &SourceError{Source: src, Kind: KindGraphQL, Err: envelope.Errors}
	}
	if len(envelope.Errors) > 0 {
		c.logger.Warn("bitquery partial errors",
			zap.String("source", src.String()),
			zap.String("error", envelope.Errors.Error()),
		)
	}
	if noData {
		return &SourceError{Source: src, Kind: KindDecode, Err: errors.New("response has no data")}
	}

	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return &SourceError{Source: src, Kind: KindDecode, Err: fmt.Errorf("unmarshal data: %w", err)}
	}
	return nil
}

// classifyTransport maps context and net errors to timeout or network kinds.
func classifyTransport(src domain.Source, err error) *SourceError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &SourceError{Source: src, Kind: KindTimeout, Err: err}
	}
	return &SourceError{Source: src, Kind: KindNetwork, Err: err}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
