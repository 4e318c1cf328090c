package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"grading_service/internal/domain"
)

// Cache holds serialized upstream responses. Model stats change only
// when a model is retrained, so short-TTL caching is safe; the grading
// core itself never caches.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type MLStatsConfig struct {
	Address    string
	Timeout    time.Duration
	CacheTTL   time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// MLStatsClient fetches model quality stats from the ML grading
// service. Transient upstream failures are retried with backoff behind
// a circuit breaker.
type MLStatsClient struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	maxRetries int
	baseDelay  time.Duration
	breaker    *CircuitBreaker
}

func NewMLStatsClient(cfg MLStatsConfig, cache Cache) *MLStatsClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	baseDelay := cfg.BaseDelay
	if baseDelay == 0 {
		baseDelay = 100 * time.Millisecond
	}

	return &MLStatsClient{
		baseURL:    cfg.Address,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		cacheTTL:   cacheTTL,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		breaker:    NewCircuitBreaker(5, 30*time.Second),
	}
}

func (c *MLStatsClient) ModelStats(ctx context.Context, location string) (*domain.ModelStats, error) {
	key := "ml-stats:" + location
	if data, ok := c.cache.Get(ctx, key); ok {
		var stats domain.ModelStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
		c.cache.Delete(ctx, key)
	}

	data, err := RetryWithCircuitBreaker(ctx, c.breaker, c.maxRetries, c.baseDelay, func() ([]byte, error) {
		return c.fetch(ctx, location)
	})
	if err != nil {
		return nil, err
	}

	var stats domain.ModelStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode model stats: %w", err)
	}

	c.cache.Set(ctx, key, data, c.cacheTTL)
	return &stats, nil
}

func (c *MLStatsClient) fetch(ctx context.Context, location string) ([]byte, error) {
	u := fmt.Sprintf("%s/grading/model-stats?location=%s", c.baseURL, url.QueryEscape(location))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("model stats request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
