package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func TestNewLockerWithoutClient(t *testing.T) {
	if NewLocker(nil) != nil {
		t.Fatal("expected nil locker without a redis client")
	}
}

func TestNilLockerTryLock(t *testing.T) {
	var locker *Locker

	if _, _, err := locker.TryLock(context.Background(), "k", time.Second); err == nil {
		t.Fatal("expected error from nil locker")
	}
	if err := locker.Release(context.Background(), "k", "tok"); err != nil {
		t.Fatalf("release on nil locker: %v", err)
	}
}

func TestTryLockRejectsBadArguments(t *testing.T) {
	// The client is never dialed: argument checks run first.
	locker := NewLocker(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))

	if _, _, err := locker.TryLock(context.Background(), "", time.Second); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, _, err := locker.TryLock(context.Background(), "k", 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestReleaseIgnoresEmptyKeyOrToken(t *testing.T) {
	locker := NewLocker(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))

	if err := locker.Release(context.Background(), "", "tok"); err != nil {
		t.Fatalf("release with empty key: %v", err)
	}
	if err := locker.Release(context.Background(), "k", ""); err != nil {
		t.Fatalf("release with empty token: %v", err)
	}
}
