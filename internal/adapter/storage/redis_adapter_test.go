package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return mr, NewRedisAdapter(client, 5*time.Second, logger)
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	mr, adapter := newTestRedis(t)
	ctx := context.Background()

	release, err := adapter.Acquire(ctx, "user:u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists("lock:user:u1") {
		t.Fatal("expected lock key to exist")
	}
	if ttl := mr.TTL("lock:user:u1"); ttl <= 0 {
		t.Errorf("expected lock ttl, got %v", ttl)
	}

	release()
	if mr.Exists("lock:user:u1") {
		t.Error("expected lock key to be deleted after release")
	}

	// Double release is a no-op.
	release()
}

func TestRedisLock_BlocksUntilDeadline(t *testing.T) {
	_, adapter := newTestRedis(t)

	release, err := adapter.Acquire(context.Background(), "user:u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := adapter.Acquire(ctx, "user:u1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRedisLock_StaleHolderCannotRelease(t *testing.T) {
	mr, adapter := newTestRedis(t)
	ctx := context.Background()

	staleRelease, err := adapter.Acquire(ctx, "user:u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Let the first lock expire and a second holder take it.
	mr.FastForward(6 * time.Second)
	release, err := adapter.Acquire(ctx, "user:u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	staleRelease()
	if !mr.Exists("lock:user:u1") {
		t.Error("stale holder must not delete the new holder's lock")
	}
}

func TestRedisLock_MutualExclusion(t *testing.T) {
	_, adapter := newTestRedis(t)

	var (
		wg      sync.WaitGroup
		holders int32
		maxSeen int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			release, err := adapter.Acquire(ctx, "user:shared")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&holders, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&holders, -1)
			release()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("expected at most one holder, saw %d", maxSeen)
	}
}

func TestSetIdempotency(t *testing.T) {
	mr, adapter := newTestRedis(t)
	ctx := context.Background()

	ok, err := adapter.SetIdempotency(ctx, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first set to succeed")
	}

	ok, err = adapter.SetIdempotency(ctx, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected replay to be rejected")
	}

	if ttl := mr.TTL("idempotency:req-1"); ttl != idempotencyKeyTTL {
		t.Errorf("expected ttl %v, got %v", idempotencyKeyTTL, ttl)
	}
}

func TestClearIdempotency(t *testing.T) {
	_, adapter := newTestRedis(t)
	ctx := context.Background()

	if _, err := adapter.SetIdempotency(ctx, "req-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adapter.ClearIdempotency(ctx, "req-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ok, err := adapter.SetIdempotency(ctx, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected key to be reusable after clear")
	}
}
