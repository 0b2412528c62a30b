package redisclient

import (
	"context"
	"os"
	"testing"
	"time"
)

// ForTest connects to TEST_REDIS_ADDR, skipping the test when it is unset or
// unreachable. The selected database is flushed before use.
func ForTest(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")

	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Connect(ctx, Config{Addr: addr, DB: 15})

	if err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}

	err = c.Raw().FlushDB(ctx).Err()

	if err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	t.Cleanup(func() { _ = c.Close() })

	return c
}
