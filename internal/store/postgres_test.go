package store

import (
	"context"
	"testing"
	"time"
)

func TestPostgresStateStoreLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := ApplyMigrations(ctx, db, Migrations()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewPostgresStateStore(db, time.Hour)
	s.now = func() time.Time { return now }

	if _, ok, err := s.Get(ctx, "cl1", "theme"); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
	}

	if err := s.Set(ctx, "cl1", "theme", "dark"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "cl1", "theme", "light"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	value, ok, err := s.Get(ctx, "cl1", "theme")
	if err != nil || !ok || value != "light" {
		t.Fatalf("Get() = %q, %v, %v; want light", value, ok, err)
	}

	if _, ok, _ := s.Get(ctx, "cl2", "theme"); ok {
		t.Fatal("state leaked across clients")
	}

	if err := s.Delete(ctx, "cl1", "theme"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, "cl1", "theme"); ok {
		t.Fatal("Get() after Delete() still found a value")
	}
}

func TestPostgresStateStoreExpiry(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := ApplyMigrations(ctx, db, Migrations()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewPostgresStateStore(db, time.Minute)
	s.now = func() time.Time { return now }

	if err := s.Set(ctx, "cl1", "token", "sealed"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "cl1", "token"); ok {
		t.Fatal("expired value still visible")
	}

	purged, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if purged != 1 {
		t.Fatalf("PurgeExpired() = %d, want 1", purged)
	}
}
