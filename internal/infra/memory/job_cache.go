// Package memory is the default in-process job cache.
package memory

import (
	"context"
	"sort"
	"sync"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/repository"
	"verify-controller/internal/infra/metrics"
)

var _ repository.JobCache = (*JobCache)(nil)

type JobCache struct {
	mu     sync.RWMutex
	jobs   map[string]*model.VerificationJob
	byList map[string]string
}

func NewJobCache() *JobCache {
	return &JobCache{
		jobs:   make(map[string]*model.VerificationJob),
		byList: make(map[string]string),
	}
}

func (c *JobCache) Get(ctx context.Context, id string) (*model.VerificationJob, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	j, ok := c.jobs[id]
	if !ok {
		metrics.IncCacheRequest("job", "miss")
		return nil, domain.ErrNotFound
	}
	metrics.IncCacheRequest("job", "hit")
	return j.Clone(), nil
}

func (c *JobCache) FindByListID(ctx context.Context, listID string) (*model.VerificationJob, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byList[listID]
	if !ok {
		metrics.IncCacheRequest("job", "miss")
		return nil, domain.ErrNotFound
	}
	metrics.IncCacheRequest("job", "hit")
	return c.jobs[id].Clone(), nil
}

func (c *JobCache) Put(ctx context.Context, j *model.VerificationJob) error {
	if j == nil || j.ID == "" {
		return domain.ErrInvalidArgument
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.jobs[j.ID]; ok && old.ListID != "" && old.ListID != j.ListID {
		delete(c.byList, old.ListID)
	}
	c.jobs[j.ID] = j.Clone()
	if j.ListID != "" {
		c.byList[j.ListID] = j.ID
	}
	return nil
}

func (c *JobCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if j, ok := c.jobs[id]; ok {
		if j.ListID != "" {
			delete(c.byList, j.ListID)
		}
		delete(c.jobs, id)
	}
	return nil
}

// List returns copies, newest first.
func (c *JobCache) List(ctx context.Context) ([]*model.VerificationJob, error) {
	c.mu.RLock()
	out := make([]*model.VerificationJob, 0, len(c.jobs))
	for _, j := range c.jobs {
		out = append(out, j.Clone())
	}
	c.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}
