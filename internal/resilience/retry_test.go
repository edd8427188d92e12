package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fast() Backoff {
	return Backoff{Attempts: 3, Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}
}

func TestDo_FirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), fast(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransient(t *testing.T) {
	var calls, retries int
	b := fast()
	b.OnRetry = func(int, error) { retries++ }

	err := Do(context.Background(), b, func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("census api: status 503"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || retries != 2 {
		t.Errorf("expected 3 calls and 2 retries, got %d and %d", calls, retries)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	err := Do(context.Background(), fast(), func(context.Context) error {
		calls++
		return Transient(errors.New("always"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	err := Do(context.Background(), fast(), func(context.Context) error {
		calls++
		return errors.New("census api: status 400")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	b := Backoff{Attempts: 5, Initial: 20 * time.Millisecond}

	err := Do(ctx, b, func(context.Context) error {
		calls++
		cancel()
		return Transient(errors.New("fail"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancel, got %d", calls)
	}
}

func TestDoVal(t *testing.T) {
	var calls int
	v, err := DoVal(context.Background(), fast(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", Transient(errors.New("429"), 429)
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond, Multiplier: 2}.withDefaults()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := b.delay(i); got != w {
			t.Errorf("delay(%d) = %v, want %v", i, got, w)
		}
	}

	b.Jitter = 0.5
	for range 50 {
		if d := b.delay(0); d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay %v out of range", d)
		}
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := Backoff{Jitter: -1}.withDefaults()
	if b.Attempts != 3 || b.Initial != 500*time.Millisecond || b.Max != 30*time.Second || b.Multiplier != 2 || b.Jitter != 0 {
		t.Errorf("unexpected defaults: %+v", b)
	}
}
