// File: internal/infra/redis/guard.go
package redis

import (
	"context"
	"sync"
	"time"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/ports/repository"
	"verify-controller/internal/infra/logging"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var _ repository.JobGuard = (*JobGuard)(nil)

// JobGuard is the cross-process in-flight guard. Several controllers sharing
// one account and one Redis see each other's lifecycle operations.
type JobGuard struct {
	cli    *redis.Client
	prefix string
	ttl    time.Duration
	log    *zerolog.Logger
}

// NewJobGuard keys are namespaced so two accounts on one Redis do not collide.
// ttl bounds how long a crashed holder can block a job.
func NewJobGuard(c *Client, namespace string, ttl time.Duration, log *zerolog.Logger) *JobGuard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logging.Nop()
	}
	return &JobGuard{cli: c.cli, prefix: "verify:" + namespace + ":inflight:", ttl: ttl, log: log}
}

// TryAcquire makes one SETNX attempt. A held key is rejected, not waited on.
// While the caller holds the guard the key's TTL is renewed, so the TTL only
// ever expires the guard of a holder that died.
func (g *JobGuard) TryAcquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	full := g.prefix + key
	ok, err := g.cli.SetNX(ctx, full, token, g.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrOperationInProgress
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go g.renew(full, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// release must survive the caller's context being cancelled
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := luaUnlock.Run(rctx, g.cli, []string{full}, token).Result(); err != nil && err != redis.Nil {
				g.log.Warn().Err(err).Str("key", key).Msg("in-flight guard release failed")
			}
		})
	}, nil
}

// renew extends the key every third of the TTL until stop is closed or the
// key no longer carries our token.
func (g *JobGuard) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(g.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		n, err := luaRenew.Run(ctx, g.cli, []string{key}, token, g.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			g.log.Warn().Err(err).Str("key", key).Msg("in-flight guard renew failed")
			continue
		}
		if n == 0 {
			g.log.Warn().Str("key", key).Msg("in-flight guard lost before release")
			return
		}
	}
}

func (g *JobGuard) Held(ctx context.Context, key string) bool {
	n, err := g.cli.Exists(ctx, g.prefix+key).Result()
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("in-flight guard lookup failed")
		return false
	}
	return n > 0
}

var luaRenew = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
