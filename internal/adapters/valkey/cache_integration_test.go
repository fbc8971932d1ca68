//go:build integration
// +build integration

package valkey_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/pinmap/internal/adapters/valkey"
)

func setupCache(t *testing.T) *valkey.Cache {
	addr := os.Getenv("PINMAP_TEST_VALKEY")
	if addr == "" {
		t.Skip("PINMAP_TEST_VALKEY not set")
	}
	c, err := valkey.New(addr)
	if err != nil {
		t.Fatalf("connect valkey: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCache_SetGetDelete(t *testing.T) {
	c := setupCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := "test:" + uuid.NewString()
	if _, err := c.Get(ctx, key); !valkey.IsMiss(err) {
		t.Fatalf("expected miss for fresh key, got %v", err)
	}

	if err := c.Set(ctx, key, []byte(`[{"id":"p1"}]`), 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"id":"p1"}]` {
		t.Errorf("unexpected value %q", got)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, key); !valkey.IsMiss(err) {
		t.Errorf("expected miss after delete, got %v", err)
	}
}
