package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestConnect(t *testing.T) {
	_, mr := setupTestRedis(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	client.Close()

	if _, err := Connect(context.Background(), "not-a-url"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestLock_TokenPerAcquire(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	if ok, _ := lock.Acquire(ctx, "refresh", time.Minute); !ok {
		t.Fatal("expected lock acquired")
	}
	first, _ := mr.Get(lockPrefix + "refresh")
	if first == "" || first != lock.tokens["refresh"] {
		t.Fatalf("expected stored token %q, got %q", lock.tokens["refresh"], first)
	}
	if err := lock.Release(ctx, "refresh"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, held := lock.tokens["refresh"]; held {
		t.Error("expected token forgotten after release")
	}

	if ok, _ := lock.Acquire(ctx, "refresh", time.Minute); !ok {
		t.Fatal("expected lock reacquired")
	}
	if second, _ := mr.Get(lockPrefix + "refresh"); second == first {
		t.Error("expected a fresh token for each acquire")
	}
}

func TestLock_AcquireRelease(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)
	other := NewLock(client)

	acquired, err := lock.Acquire(ctx, "instagram-token-refresher", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("expected lock acquired, got %v %v", acquired, err)
	}
	if !mr.Exists(lockPrefix + "instagram-token-refresher") {
		t.Fatal("expected lock key in redis")
	}

	acquired, err = other.Acquire(ctx, "instagram-token-refresher", time.Minute)
	if err != nil || acquired {
		t.Fatalf("expected second owner to be refused, got %v %v", acquired, err)
	}

	// A different owner cannot release it
	if err := other.Release(ctx, "instagram-token-refresher"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !mr.Exists(lockPrefix + "instagram-token-refresher") {
		t.Fatal("lock released by a different owner")
	}

	if err := lock.Release(ctx, "instagram-token-refresher"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	acquired, _ = other.Acquire(ctx, "instagram-token-refresher", time.Minute)
	if !acquired {
		t.Error("expected lock to be free after release")
	}
}

func TestLock_Release_NotHeld(t *testing.T) {
	client, _ := setupTestRedis(t)
	if err := NewLock(client).Release(context.Background(), "nothing"); err != nil {
		t.Errorf("expected no error releasing unheld lock, got %v", err)
	}
}

func TestLock_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	if ok, _ := lock.Acquire(ctx, "refresh", time.Minute); !ok {
		t.Fatal("expected lock acquired")
	}
	mr.FastForward(2 * time.Minute)

	if ok, _ := NewLock(client).Acquire(ctx, "refresh", time.Minute); !ok {
		t.Error("expected expired lock to be acquirable")
	}
}

func TestLock_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	if err := lock.Extend(ctx, "refresh", time.Minute); !errors.Is(err, domain.ErrLockNotHeld) {
		t.Errorf("expected ErrLockNotHeld extending unheld lock, got %v", err)
	}

	if ok, _ := lock.Acquire(ctx, "refresh", time.Minute); !ok {
		t.Fatal("expected lock acquired")
	}
	if err := lock.Extend(ctx, "refresh", 10*time.Minute); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if ttl := mr.TTL(lockPrefix + "refresh"); ttl < 9*time.Minute {
		t.Errorf("expected extended TTL, got %s", ttl)
	}

	if err := NewLock(client).Extend(ctx, "refresh", time.Minute); !errors.Is(err, domain.ErrLockNotHeld) {
		t.Errorf("expected ErrLockNotHeld for another instance, got %v", err)
	}
}

func TestLock_Extend_AfterTakeover(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)
	other := NewLock(client)

	if ok, _ := lock.Acquire(ctx, "refresh", time.Minute); !ok {
		t.Fatal("expected lock acquired")
	}
	mr.FastForward(2 * time.Minute)
	if ok, _ := other.Acquire(ctx, "refresh", time.Minute); !ok {
		t.Fatal("expected expired lock to be taken over")
	}

	if err := lock.Extend(ctx, "refresh", time.Minute); !errors.Is(err, domain.ErrLockNotHeld) {
		t.Fatalf("expected ErrLockNotHeld after takeover, got %v", err)
	}
	// The stale holder must not delete the new owner's key
	if err := lock.Release(ctx, "refresh"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !mr.Exists(lockPrefix + "refresh") {
		t.Error("stale holder released the new owner's lock")
	}
}

func TestLock_Ping(t *testing.T) {
	client, mr := setupTestRedis(t)
	lock := NewLock(client)

	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	mr.Close()
	if err := lock.Ping(context.Background()); err == nil {
		t.Error("expected ping error after server shutdown")
	}
}
