package rediscache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis connects to a local Redis and skips the test when none runs.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	client.FlushDB(ctx)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestKey_Stable(t *testing.T) {
	type req struct {
		Text  string `json:"text"`
		Count int    `json:"count"`
	}

	a, err := Key("flashcards", req{Text: "مرحبا", Count: 5})
	require.NoError(t, err)
	b, err := Key("flashcards", req{Text: "مرحبا", Count: 5})
	require.NoError(t, err)
	c, err := Key("flashcards", req{Text: "مرحبا", Count: 6})
	require.NoError(t, err)
	d, err := Key("scenario", req{Text: "مرحبا", Count: 5})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.True(t, strings.HasPrefix(a, "botaqiy:gen:flashcards:"))
}

func TestCache_SetGet(t *testing.T) {
	client := setupTestRedis(t)
	cache := New(client, time.Minute)
	ctx := context.Background()

	var got []string
	found, err := cache.Get(ctx, "botaqiy:gen:test:missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "botaqiy:gen:test:1", []string{"a", "b"}))

	found, err = cache.Get(ctx, "botaqiy:gen:test:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, got)

	ttl, err := client.TTL(ctx, "botaqiy:gen:test:1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
