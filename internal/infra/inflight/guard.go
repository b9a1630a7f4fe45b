// Package inflight holds the in-process per-job operation guard.
package inflight

import (
	"context"
	"sync"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/ports/repository"
)

var _ repository.JobGuard = (*Guard)(nil)

// Guard admits at most one lifecycle operation per key. It never queues.
type Guard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func New() *Guard {
	return &Guard{held: make(map[string]struct{})}
}

func (g *Guard) TryAcquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, domain.ErrOperationInProgress
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

func (g *Guard) Held(ctx context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}
