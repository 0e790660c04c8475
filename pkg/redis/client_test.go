package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/config"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewClient(config.RedisConfig{Addr: addr, DB: 15, PoolSize: 2})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSetGetFlush(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	for _, k := range []string{"test:a", "test:b", "other:c"} {
		if err := c.Set(ctx, k, []byte(k), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	got, err := c.Get(ctx, "test:a")
	if err != nil || string(got) != "test:a" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	n, err := c.FlushByPattern(ctx, "test:*")
	if err != nil || n != 2 {
		t.Fatalf("FlushByPattern = %d, %v", n, err)
	}
	if _, err := c.Get(ctx, "test:b"); !IsNilError(err) {
		t.Errorf("flushed key still readable: %v", err)
	}
	if _, err := c.FlushByPattern(ctx, "other:*"); err != nil {
		t.Fatal(err)
	}
}
