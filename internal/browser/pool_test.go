package browser

import (
	"context"
	"sync"
	"testing"
	"time"
)

func skipCI(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping browser test in short mode: requires a real Chrome binary")
	}
}

func testPoolConfig() PoolConfig {
	return PoolConfig{MaxTabs: 2, Headless: true}
}

func TestNewPool_DoesNotLaunchUntilFirstUse(t *testing.T) {
	p := NewPool(testPoolConfig())
	defer p.Shutdown(context.Background())

	p.mu.Lock()
	launched := p.browser != nil
	p.mu.Unlock()
	if launched {
		t.Fatal("expected browser to not be launched before first AcquireBrowser/AcquireTab call")
	}
	if p.Available() != 2 {
		t.Fatalf("expected 2 available tab permits, got %d", p.Available())
	}
}

func TestPool_AcquireTabRespectsMaxTabs(t *testing.T) {
	skipCI(t)

	p := NewPool(testPoolConfig())
	defer p.Shutdown(context.Background())

	ctx := context.Background()
	_, release1, err := p.AcquireTab(ctx)
	if err != nil {
		t.Fatalf("acquire tab 1: %v", err)
	}
	_, release2, err := p.AcquireTab(ctx)
	if err != nil {
		t.Fatalf("acquire tab 2: %v", err)
	}
	if p.Available() != 0 {
		t.Fatalf("expected 0 available, got %d", p.Available())
	}

	shortCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, _, err = p.AcquireTab(shortCtx)
	if err == nil {
		t.Fatal("expected third tab acquire to block until timeout")
	}

	release1()
	release2()
	if p.Available() != 2 {
		t.Fatalf("expected 2 available after release, got %d", p.Available())
	}
}

func TestPool_ReleaseIsIdempotent(t *testing.T) {
	skipCI(t)

	p := NewPool(testPoolConfig())
	defer p.Shutdown(context.Background())

	_, release, err := p.AcquireTab(context.Background())
	if err != nil {
		t.Fatalf("acquire tab: %v", err)
	}
	release()
	release()
	if p.Available() != 2 {
		t.Fatalf("expected 2 available after double release, got %d", p.Available())
	}
}

func TestPool_ShutdownIsIdempotent(t *testing.T) {
	p := NewPool(testPoolConfig())
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown should be a no-op, got: %v", err)
	}
}

func TestPool_AcquireTabAfterShutdownFails(t *testing.T) {
	p := NewPool(testPoolConfig())
	p.Shutdown(context.Background())

	_, _, err := p.AcquireTab(context.Background())
	if err == nil {
		t.Fatal("expected error acquiring a tab from a shut-down pool")
	}
}

func TestPool_ConcurrentAcquireReleaseNeverExceedsBudget(t *testing.T) {
	skipCI(t)

	p := NewPool(PoolConfig{MaxTabs: 3, Headless: true})
	defer p.Shutdown(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := p.AcquireTab(context.Background())
			if err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
			release()
		}()
	}
	wg.Wait()

	if p.Available() != 3 {
		t.Fatalf("expected all 3 permits returned, got %d available", p.Available())
	}
}
