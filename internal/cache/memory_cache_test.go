package cache

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInMemoryCache_SetAndGet(t *testing.T) {
	cache := NewInMemoryCache(1 * time.Second)
	ctx := context.Background()
	key := "plan:abc"
	value := "cached-plan"

	err := cache.Set(ctx, key, value)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != value {
		t.Errorf("expected %v, got %v", value, got)
	}
}

func TestInMemoryCache_Expiration(t *testing.T) {
	cache := NewInMemoryCache(50 * time.Millisecond)
	ctx := context.Background()

	err := cache.Set(ctx, "baz", "qux")
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	_, err = cache.Get(ctx, "baz")
	if err == nil {
		t.Errorf("expected error for expired item, got nil")
	}
}

func TestInMemoryCache_Concurrency(t *testing.T) {
	cache := NewInMemoryCache(1 * time.Second)
	ctx := context.Background()
	setErr := make(chan error, 1)
	getErr := make(chan error, 1)

	go func() {
		setErr <- cache.Set(ctx, "concurrent", "val")
	}()
	go func() {
		_, err := cache.Get(ctx, "concurrent")
		getErr <- err
	}()

	if err := <-setErr; err != nil {
		t.Errorf("Set failed: %v", err)
	}
	if err := <-getErr; err != nil && !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected Get error: %v", err)
	}
}

func TestFilePersistentCache_SurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.json")
	ctx := context.Background()

	first := NewFilePersistentCache(1*time.Hour, path, nil)
	if err := first.Set(ctx, "plan:abc", map[string]string{"question": "what time is my tee time"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	second := NewFilePersistentCache(1*time.Hour, path, nil)
	got, err := second.Get(ctx, "plan:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	raw, ok := got.(json.RawMessage)
	if !ok || raw == nil {
		t.Fatalf("expected raw JSON value after reload, got %T", got)
	}
	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("stored value should round-trip: %v", err)
	}
	if decoded["question"] != "what time is my tee time" {
		t.Errorf("unexpected value after reload: %v", decoded)
	}
}
