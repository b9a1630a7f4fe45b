//go:build !integration

package inflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"verify-controller/internal/domain"
)

func TestGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject a second acquire on the same key", func(t *testing.T) {
		g := New()
		release, err := g.TryAcquire(ctx, "a")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer release()

		if _, err := g.TryAcquire(ctx, "a"); !errors.Is(err, domain.ErrOperationInProgress) {
			t.Errorf("expected ErrOperationInProgress, got %v", err)
		}
	})

	t.Run("should let different keys proceed", func(t *testing.T) {
		g := New()
		r1, err1 := g.TryAcquire(ctx, "a")
		r2, err2 := g.TryAcquire(ctx, "b")
		if err1 != nil || err2 != nil {
			t.Fatalf("expected both acquires to succeed, got %v / %v", err1, err2)
		}
		r1()
		r2()
	})

	t.Run("release is idempotent and frees the key", func(t *testing.T) {
		g := New()
		release, _ := g.TryAcquire(ctx, "a")
		release()
		release()
		if g.Held(ctx, "a") {
			t.Fatal("expected key to be free")
		}
		if _, err := g.TryAcquire(ctx, "a"); err != nil {
			t.Errorf("expected reacquire to succeed, got %v", err)
		}
	})

	t.Run("exactly one concurrent caller wins", func(t *testing.T) {
		g := New()
		var wins int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, err := g.TryAcquire(ctx, "hot"); err == nil {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		close(start)
		wg.Wait()
		if wins != 1 {
			t.Errorf("expected exactly 1 winner, got %d", wins)
		}
	})
}
