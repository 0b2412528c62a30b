package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/tasklist/internal/redisclient"
)

func TestFixedWindow_LimitsPerKey(t *testing.T) {
	rl := NewFixedWindow(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, _ := rl.Allow(ctx, "a")
		if !res.Allowed {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}

	res, _ := rl.Allow(ctx, "a")
	if res.Allowed {
		t.Fatalf("third hit should be limited")
	}

	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Fatalf("unexpected retry after %v", res.RetryAfter)
	}

	if res, _ := rl.Allow(ctx, "b"); !res.Allowed {
		t.Fatalf("other keys have their own window")
	}
}

func TestFixedWindow_ResetsAfterWindow(t *testing.T) {
	rl := NewFixedWindow(1, time.Minute)
	ctx := context.Background()

	now := time.Now()
	rl.now = func() time.Time { return now }

	_, _ = rl.Allow(ctx, "a")

	if res, _ := rl.Allow(ctx, "a"); res.Allowed {
		t.Fatalf("expected limit")
	}

	now = now.Add(61 * time.Second)

	if res, _ := rl.Allow(ctx, "a"); !res.Allowed {
		t.Fatalf("expected a fresh window")
	}
}

func TestFixedWindow_SweepsStaleBuckets(t *testing.T) {
	rl := NewFixedWindow(5, time.Second)
	ctx := context.Background()

	now := time.Now()
	rl.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		_, _ = rl.Allow(ctx, k)
	}

	now = now.Add(2 * time.Second)
	_, _ = rl.Allow(ctx, "d")

	if len(rl.clients) != 1 {
		t.Fatalf("expected stale buckets to be swept, have %d", len(rl.clients))
	}
}

func TestFixedWindow_ConcurrentHitsNeverExceedLimit(t *testing.T) {
	rl := NewFixedWindow(50, time.Minute)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, _ := rl.Allow(ctx, "k"); res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed, got %d", allowed)
	}
}

func TestSlidingWindow_Redis(t *testing.T) {
	c := redisclient.ForTest(t)
	rl := NewSlidingWindow(c.Raw(), "test:login:", 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := rl.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !res.Allowed || res.Remaining != 2-i {
			t.Fatalf("hit %d: unexpected %+v", i+1, res)
		}
	}

	res, err := rl.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed || res.RetryAfter <= 0 {
		t.Fatalf("expected limit with retry-after, got %+v", res)
	}

	if err := rl.Reset(ctx, "1.2.3.4"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if res, _ := rl.Allow(ctx, "1.2.3.4"); !res.Allowed {
		t.Fatalf("expected reset to clear the window")
	}
}
