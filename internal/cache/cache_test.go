package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type cachedValue struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestMemoryCache_SetGetDel(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", cachedValue{ID: 1, Name: "a"}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got cachedValue
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != 1 || got.Name != "a" {
		t.Errorf("Unexpected value: %+v", got)
	}

	exists, _ := c.Exists(ctx, "k")
	if !exists {
		t.Error("Expected key to exist")
	}

	c.Del(ctx, "k")
	if err := c.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "short", 1, time.Second)
	c.Set(ctx, "forever", 2, 0)

	now = now.Add(2 * time.Second)

	var v int
	if err := c.Get(ctx, "short", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected expired key to miss, got %v", err)
	}
	if err := c.Get(ctx, "forever", &v); err != nil || v != 2 {
		t.Errorf("Expected non-expiring key, got %v/%d", err, v)
	}
}

// 过期判断与删除之间写入的新值不能被删除
func TestMemoryCache_ExpiredGetKeepsConcurrentSet(t *testing.T) {
	c := NewMemoryCache()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	ctx := context.Background()

	c.Set(ctx, "k", cachedValue{ID: 1, Name: "old"}, time.Second)

	refreshed := false
	c.now = func() time.Time {
		if !refreshed {
			refreshed = true
			c.Set(ctx, "k", cachedValue{ID: 1, Name: "new"}, 0)
		}
		return base.Add(2 * time.Second)
	}

	var got cachedValue
	if err := c.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected expired read to miss, got %v", err)
	}
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Expected refreshed value to survive, got %v", err)
	}
	if got.Name != "new" {
		t.Errorf("Expected refreshed value, got %+v", got)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(ctx, "k", i, time.Minute)
			var v int
			_ = c.Get(ctx, "k", &v)
			c.Del(ctx, "k")
		}(i)
	}
	wg.Wait()
}

func TestNullCache(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	c.Set(ctx, "k", 1, time.Minute)
	var v int
	if err := c.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}
