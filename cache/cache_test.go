// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	if err := m.Set(ctx, "k", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v1" {
		t.Errorf("Get(k) = %q, %v, %v", got, ok, err)
	}

	// Overwrite
	m.Set(ctx, "k", []byte("v2"), time.Minute)
	got, _, _ = m.Get(ctx, "k")
	if string(got) != "v2" {
		t.Errorf("Get(k) after overwrite = %q, want v2", got)
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", []byte("v"), 60*time.Second)

	now = now.Add(59 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Error("entry should still be fresh at 59s")
	}

	now = now.Add(time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("entry should expire at 60s")
	}
	if _, present := m.entries["k"]; present {
		t.Error("expired entry should be evicted")
	}
}

func TestMemory_CopiesValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	buf := []byte("abc")
	m.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'x'

	got, _, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("cached value changed with caller's slice: %q", got)
	}
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Set(ctx, "shared", []byte{byte(i)}, time.Minute)
			m.Get(ctx, "shared")
		}(i)
	}
	wg.Wait()

	if _, ok, _ := m.Get(ctx, "shared"); !ok {
		t.Error("expected a value after concurrent writes")
	}
}

func TestNewRedis_InvalidURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "http://not-redis"); err == nil {
		t.Error("expected error for non-redis URL")
	}
}
