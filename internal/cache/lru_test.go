package cache

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"spesewa/internal/log"
)

func TestUserLRUGetSet(t *testing.T) {
	c := NewUserLRU[int](10, time.Minute)
	c.Set("alice", "list", 1)
	c.Set("bob", "list", 2)

	if v, ok := c.Get("alice", "list"); !ok || v != 1 {
		t.Fatalf("Get(alice) = %d, %v", v, ok)
	}
	if v, ok := c.Get("bob", "list"); !ok || v != 2 {
		t.Fatalf("Get(bob) = %d, %v", v, ok)
	}
	if _, ok := c.Get("carol", "list"); ok {
		t.Fatal("unexpected hit for carol")
	}

	c.Set("alice", "list", 3)
	if v, _ := c.Get("alice", "list"); v != 3 {
		t.Fatalf("overwrite: got %d", v)
	}
	if c.Size() != 2 {
		t.Fatalf("Size = %d, want 2", c.Size())
	}
}

func TestUserLRUEviction(t *testing.T) {
	c := NewUserLRU[string](2, time.Minute)
	c.Set("u", "a", "a")
	c.Set("u", "b", "b")
	c.Get("u", "a") // a becomes most recent
	c.Set("u", "c", "c")

	if _, ok := c.Get("u", "b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if _, ok := c.Get("u", "a"); !ok {
		t.Error("recently used entry evicted")
	}
}

func TestUserLRUTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewUserLRU[int](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("u", "k", 1)
	c.Set("u", "j", 2)
	now = now.Add(2 * time.Second)

	if _, ok := c.Get("u", "k"); ok {
		t.Fatal("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d, want 0", c.Size())
	}
}

func TestInvalidateUser(t *testing.T) {
	c := NewUserLRU[int](10, time.Minute)
	c.Set("alice", "list", 1)
	c.Set("alice", "summary", 2)
	c.Set("bob", "list", 3)

	if n := c.InvalidateUser("alice"); n != 2 {
		t.Fatalf("InvalidateUser = %d, want 2", n)
	}
	if _, ok := c.Get("alice", "summary"); ok {
		t.Error("alice entry survived invalidation")
	}
	if _, ok := c.Get("bob", "list"); !ok {
		t.Error("bob entry dropped")
	}
	if n := c.InvalidateUser("nobody"); n != 0 {
		t.Errorf("InvalidateUser(nobody) = %d", n)
	}
}

func TestRunCleanupStops(t *testing.T) {
	c := NewUserLRU[int](10, time.Nanosecond)
	c.Set("u", "k", 1)

	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, JSON: true, Output: &buf})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		RunCleanup(ctx, 5*time.Millisecond, logger, c)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not return after cancel")
	}
	if c.Size() != 0 {
		t.Errorf("Size = %d after cleanup", c.Size())
	}
	if out := buf.String(); !strings.Contains(out, `"component":"cache"`) || !strings.Contains(out, `"removed":1`) {
		t.Errorf("cleanup log = %q", out)
	}
}
