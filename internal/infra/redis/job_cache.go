package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/repository"
	"verify-controller/internal/infra/metrics"

	"github.com/go-redis/redis/v8"
)

var _ repository.JobCache = (*JobCache)(nil)

// JobCache keeps job records as JSON strings plus two indexes: a set of ids
// and a listId -> id hash. Records expire after ttl unless rewritten.
type JobCache struct {
	cli    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewJobCache(c *Client, namespace string, ttl time.Duration) *JobCache {
	return &JobCache{cli: c.cli, prefix: "verify:" + namespace + ":", ttl: ttl}
}

func (c *JobCache) jobKey(id string) string { return c.prefix + "job:" + id }
func (c *JobCache) idsKey() string          { return c.prefix + "jobs" }
func (c *JobCache) listKey() string         { return c.prefix + "list_ids" }

func (c *JobCache) Get(ctx context.Context, id string) (*model.VerificationJob, error) {
	data, err := c.cli.Get(ctx, c.jobKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.IncCacheRequest("job", "miss")
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var j model.VerificationJob
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, err
	}
	metrics.IncCacheRequest("job", "hit")
	return &j, nil
}

func (c *JobCache) FindByListID(ctx context.Context, listID string) (*model.VerificationJob, error) {
	id, err := c.cli.HGet(ctx, c.listKey(), listID).Result()
	if errors.Is(err, redis.Nil) {
		metrics.IncCacheRequest("job", "miss")
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, id)
}

func (c *JobCache) Put(ctx context.Context, j *model.VerificationJob) error {
	data, err := json.Marshal(j)
	if err != nil {
		return err
	}
	_, err = c.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, c.jobKey(j.ID), data, c.ttl)
		p.SAdd(ctx, c.idsKey(), j.ID)
		if j.ListID != "" {
			p.HSet(ctx, c.listKey(), j.ListID, j.ID)
		}
		return nil
	})
	return err
}

func (c *JobCache) Delete(ctx context.Context, id string) error {
	j, err := c.Get(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	_, err = c.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, c.jobKey(id))
		p.SRem(ctx, c.idsKey(), id)
		if j != nil && j.ListID != "" {
			p.HDel(ctx, c.listKey(), j.ListID)
		}
		return nil
	})
	return err
}

// List returns every live record, newest first. Ids whose record expired are
// dropped from the index on the way.
func (c *JobCache) List(ctx context.Context) ([]*model.VerificationJob, error) {
	ids, err := c.cli.SMembers(ctx, c.idsKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.jobKey(id)
	}
	vals, err := c.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*model.VerificationJob, 0, len(vals))
	var expired []interface{}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var j model.VerificationJob
		if err := json.Unmarshal([]byte(s), &j); err != nil {
			return nil, err
		}
		out = append(out, &j)
	}
	if len(expired) > 0 {
		_ = c.cli.SRem(ctx, c.idsKey(), expired...).Err()
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}
