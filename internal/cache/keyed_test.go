package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedNotifiesSubscribers(t *testing.T) {
	k := NewKeyed[[]string](8, 0)
	var got [][]string
	unsub := k.Subscribe("tx", func(v []string) { got = append(got, v) })

	k.Set("tx", []string{"a"})
	k.Update("tx", func(cur []string, _ bool) []string { return append([]string{"b"}, cur...) })
	k.Set("other", []string{"ignored"})

	if len(got) != 2 || got[1][0] != "b" || got[1][1] != "a" {
		t.Fatalf("unexpected notifications: %v", got)
	}

	unsub()
	unsub()
	k.Set("tx", nil)
	if len(got) != 2 {
		t.Fatalf("unsubscribed listener must not fire")
	}
	if k.Subscribers("tx") != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestKeyedRefreshCoalesces(t *testing.T) {
	k := NewKeyed[int](8, 0)
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := k.Refresh(context.Background(), "summary", fetch)
			if err != nil {
				t.Errorf("refresh: %v", err)
			}
			results[i] = v
		}(i)
	}
	// Give the goroutines time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() < 1 || calls.Load() > 5 {
		t.Fatalf("unexpected fetch count %d", calls.Load())
	}
	for _, r := range results {
		if r != 42 {
			t.Fatalf("unexpected result %v", results)
		}
	}
	if v, ok := k.Peek("summary"); !ok || v != 42 {
		t.Fatalf("expected cached value")
	}
}

func TestKeyedRefreshErrorKeepsPrior(t *testing.T) {
	k := NewKeyed[int](8, 0)
	k.Set("s", 7)
	notified := 0
	k.Subscribe("s", func(int) { notified++ })

	_, err := k.Refresh(context.Background(), "s", func(context.Context) (int, error) {
		return 0, errors.New("offline")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if v, _ := k.Peek("s"); v != 7 {
		t.Fatalf("prior value lost: %d", v)
	}
	if notified != 0 {
		t.Fatalf("failed refresh must not notify")
	}
}

func TestKeyedGetUsesCache(t *testing.T) {
	k := NewKeyed[int](8, 0)
	calls := 0
	fetch := func(context.Context) (int, error) { calls++; return calls, nil }
	ctx := context.Background()
	a, _ := k.Get(ctx, "x", fetch)
	b, _ := k.Get(ctx, "x", fetch)
	if a != 1 || b != 1 || calls != 1 {
		t.Fatalf("expected a single fetch, got a=%d b=%d calls=%d", a, b, calls)
	}
	k.Invalidate("x")
	c, _ := k.Get(ctx, "x", fetch)
	if c != 2 {
		t.Fatalf("expected refetch after invalidation, got %d", c)
	}
}

func TestKeyedRefreshOutrunByWrite(t *testing.T) {
	t.Run("update keeps local value", func(t *testing.T) {
		k := NewKeyed[[]string](8, 0)
		k.Set("tx", []string{"a"})

		var seen [][]string
		k.Subscribe("tx", func(v []string) { seen = append(seen, v) })

		got, err := k.Refresh(context.Background(), "tx", func(context.Context) ([]string, error) {
			snapshot := []string{"a"}
			k.Update("tx", func(cur []string, _ bool) []string { return append([]string{"b"}, cur...) })
			return snapshot, nil
		})
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if len(got) != 2 || got[0] != "b" {
			t.Fatalf("expected local value returned, got %v", got)
		}
		if v, _ := k.Peek("tx"); len(v) != 2 {
			t.Fatalf("stale snapshot overwrote local write: %v", v)
		}
		if len(seen) != 1 {
			t.Fatalf("stale snapshot must not be published, got %v", seen)
		}
	})

	t.Run("invalidate repeats fetch", func(t *testing.T) {
		k := NewKeyed[int](8, 0)
		calls := 0
		got, err := k.Refresh(context.Background(), "n", func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				k.Invalidate("n")
			}
			return calls, nil
		})
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if got != 2 || calls != 2 {
			t.Fatalf("expected second fetch to win, got %d after %d calls", got, calls)
		}
		if v, ok := k.Peek("n"); !ok || v != 2 {
			t.Fatalf("expected 2 cached, got %d %v", v, ok)
		}
	})
}
