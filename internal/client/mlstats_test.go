package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grading_service/internal/client"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok
}

func (c *fakeCache) Set(_ context.Context, key string, data []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	c.sets++
}

func (c *fakeCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

const statsJSON = `{"kappa":0.5,"mean_absolute_error":1.2,"date_created":"2024-01-01","number_of_essays":50}`

func newStatsClient(addr string, cache client.Cache) *client.MLStatsClient {
	return client.NewMLStatsClient(client.MLStatsConfig{
		Address:    addr,
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
	}, cache)
}

func TestModelStats(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/grading/model-stats", r.URL.Path)
		assert.Equal(t, "loc-1", r.URL.Query().Get("location"))
		_, _ = w.Write([]byte(statsJSON))
	}))
	defer srv.Close()

	cache := newFakeCache()
	c := newStatsClient(srv.URL, cache)

	stats, err := c.ModelStats(context.Background(), "loc-1")
	require.NoError(t, err)
	require.NotNil(t, stats.Kappa)
	assert.Equal(t, 0.5, *stats.Kappa)
	require.NotNil(t, stats.NumberOfEssays)
	assert.Equal(t, 50, *stats.NumberOfEssays)

	// Second lookup is served from the cache.
	_, err = c.ModelStats(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, cache.sets)
}

func TestModelStats_RetriesServerErrors(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(statsJSON))
	}))
	defer srv.Close()

	c := newStatsClient(srv.URL, newFakeCache())

	stats, err := c.ModelStats(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.NotNil(t, stats.DateCreated)
	assert.Equal(t, 2, requests)
}

func TestModelStats_ClientErrorIsNotRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newStatsClient(srv.URL, newFakeCache())

	_, err := c.ModelStats(context.Background(), "loc-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, 1, requests)
}

func TestModelStats_CorruptCacheEntryIsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(statsJSON))
	}))
	defer srv.Close()

	cache := newFakeCache()
	cache.Set(context.Background(), "ml-stats:loc-1", []byte("{not json"), time.Minute)

	c := newStatsClient(srv.URL, cache)
	stats, err := c.ModelStats(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.NotNil(t, stats.Kappa)
}

func TestAuthorize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/current", r.URL.Path)
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"user_id":"grader-1"}`))
	}))
	defer srv.Close()

	c := client.NewAuthClient(client.AuthConfig{Address: srv.URL})
	userID, err := c.Authorize(context.Background(), "Bearer good-token")
	require.NoError(t, err)
	assert.Equal(t, "grader-1", userID)
}

func TestAuthorize_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := client.NewAuthClient(client.AuthConfig{Address: srv.URL})
	_, err := c.Authorize(context.Background(), "Bearer bad-token")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestAuthorize_EmptyUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := client.NewAuthClient(client.AuthConfig{Address: srv.URL})
	_, err := c.Authorize(context.Background(), "Bearer token")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}
