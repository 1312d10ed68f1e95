package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCache_FetchOncePerKey(t *testing.T) {
	cache := NewCache(nil)
	ctx := context.Background()

	var calls int32
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}

	for i := 0; i < 5; i++ {
		got, err := cache.Get(ctx, KeyTemplates, fetch)
		if err != nil {
			t.Fatalf("get #%d: %v", i, err)
		}
		if got != "value" {
			t.Fatalf("unexpected value %v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, expected once", calls)
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	cache := NewCache(nil)
	ctx := context.Background()

	var calls int32
	fetch := func(context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}

	if _, err := cache.Get(ctx, "k", fetch); err == nil {
		t.Fatal("expected first fetch to fail")
	}
	got, err := cache.Get(ctx, "k", fetch)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got != "ok" {
		t.Fatalf("unexpected value %v", got)
	}
}

func TestCache_InvalidateForcesRefetch(t *testing.T) {
	cache := NewCache(nil)
	ctx := context.Background()

	var calls int32
	fetch := func(context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	if _, err := cache.Get(ctx, "k", fetch); err != nil {
		t.Fatalf("get: %v", err)
	}
	cache.Invalidate(ctx, "k")

	got, err := cache.Get(ctx, "k", fetch)
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if got.(int32) != 2 {
		t.Fatalf("expected refetch after invalidate, got %v", got)
	}
}

func TestCache_ConcurrentFirstAccessCollapses(t *testing.T) {
	cache := NewCache(nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fetch := func(context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(ctx, "k", fetch); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}

	<-started
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("fetch called %d times, expected singleflight collapse to 1", calls)
	}
}

func TestCache_InvalidateDuringFetchDiscardsResult(t *testing.T) {
	cache := NewCache(nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fetch := func(context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			close(started)
			<-release
		}
		return n, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := cache.Get(ctx, "k", fetch); err != nil {
			t.Errorf("get: %v", err)
		}
	}()

	// 拉取挂起期间失效，先完成的拉取结果必须作废。
	<-started
	cache.Invalidate(ctx, "k")
	close(release)
	<-done

	got, err := cache.Get(ctx, "k", fetch)
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if got.(int32) != 2 {
		t.Fatalf("expected refetch after invalidate, got %v", got)
	}
}

func TestCacheKeys(t *testing.T) {
	if UserKey("u1") != "user:u1" {
		t.Fatalf("unexpected user key %q", UserKey("u1"))
	}
	if SavedResumesKey("u1") != "savedResumes:u1" {
		t.Fatalf("unexpected saved resumes key %q", SavedResumesKey("u1"))
	}
}
