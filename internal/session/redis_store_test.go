package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), ttl)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t, 0)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url", 0); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestSetAndGet(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	if err := store.Set(ctx, "cl_1", KeyTheme, "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok, err := store.Get(ctx, "cl_1", KeyTheme)
	if err != nil || !ok {
		t.Fatalf("Get = %q, %v, %v", value, ok, err)
	}
	if value != "dark" {
		t.Errorf("expected dark, got %s", value)
	}
	if got := s.TTL("console:cl_1:theme"); got != time.Hour {
		t.Errorf("expected 1h ttl, got %s", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	store, _ := setupTestRedis(t, 0)
	_, ok, err := store.Get(context.Background(), "cl_1", KeyToken)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected missing key")
	}
}

func TestStateExpires(t *testing.T) {
	store, s := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	if err := store.Set(ctx, "cl_1", KeyLocale, "de"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.FastForward(2 * time.Minute)

	if _, ok, _ := store.Get(ctx, "cl_1", KeyLocale); ok {
		t.Error("expected state to expire")
	}
}

func TestDeleteAndIsolation(t *testing.T) {
	store, _ := setupTestRedis(t, 0)
	ctx := context.Background()

	for _, cid := range []string{"cl_1", "cl_2"} {
		if err := store.Set(ctx, cid, KeyToken, "token-"+cid); err != nil {
			t.Fatalf("Set %s failed: %v", cid, err)
		}
	}
	if err := store.Delete(ctx, "cl_1", KeyToken); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "cl_1", KeyToken); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "cl_1", KeyToken); ok {
		t.Error("cl_1 token should be gone")
	}
	value, ok, err := store.Get(ctx, "cl_2", KeyToken)
	if err != nil || !ok || value != "token-cl_2" {
		t.Errorf("cl_2 token = %q, %v, %v", value, ok, err)
	}
}
