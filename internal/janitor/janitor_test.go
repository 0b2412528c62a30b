package janitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakePurger struct {
	mu    sync.Mutex
	calls int
	errs  []error
	done  chan struct{}
	want  int
}

func (f *fakePurger) PurgeExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}

	f.calls++
	if f.calls == f.want {
		close(f.done)
	}

	if err != nil {
		return 0, err
	}
	return 1, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunRetriesAfterFailureAndStops(t *testing.T) {
	p := &fakePurger{
		errs: []error{errors.New("db down"), errors.New("db down")},
		done: make(chan struct{}),
		want: 4,
	}

	j := New(Config{Interval: 5 * time.Millisecond}, p, discard())

	var attempts []int
	var mu sync.Mutex
	j.backoff = func(attempt int) time.Duration {
		mu.Lock()
		attempts = append(attempts, attempt)
		mu.Unlock()
		return time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)

	go func() { result <- j.Run(ctx) }()

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("janitor did not run enough times")
	}

	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("janitor did not stop")
	}

	mu.Lock()
	defer mu.Unlock()

	if len(attempts) != 2 || attempts[0] != 0 || attempts[1] != 1 {
		t.Fatalf("unexpected backoff attempts %v", attempts)
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		min     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{20, time.Minute},
	}

	for _, tt := range tests {
		got := ExponentialBackoff(tt.attempt, time.Second, time.Minute)

		if got < tt.min || got >= tt.min+250*time.Millisecond {
			t.Fatalf("attempt %d: got %v want [%v, %v)", tt.attempt, got, tt.min, tt.min+250*time.Millisecond)
		}
	}
}
