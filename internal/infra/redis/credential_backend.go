package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.CredentialBackend = (*CredentialBackend)(nil)

// CredentialBackend is one credential scope held in Redis. The ephemeral
// scope gets a TTL; the durable scope is written with ttl 0 (no expiry).
type CredentialBackend struct {
	client *Client
	key    string
	ttl    time.Duration
}

func NewEphemeralCredentialBackend(c *Client, namespace string, ttl time.Duration) *CredentialBackend {
	return &CredentialBackend{client: c, key: "verify:" + namespace + ":credential:ephemeral", ttl: ttl}
}

func NewDurableCredentialBackend(c *Client, namespace string) *CredentialBackend {
	return &CredentialBackend{client: c, key: "verify:" + namespace + ":credential:durable"}
}

func (b *CredentialBackend) Load(ctx context.Context) (model.Credential, error) {
	data, err := b.client.Get(ctx, b.key)
	if errors.Is(err, redis.Nil) {
		return model.Credential{}, domain.ErrNotFound
	}
	if err != nil {
		return model.Credential{}, err
	}
	var c model.Credential
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return model.Credential{}, err
	}
	if !c.Valid() {
		return model.Credential{}, domain.ErrNotFound
	}
	return c, nil
}

func (b *CredentialBackend) Save(ctx context.Context, c model.Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key, data, b.ttl)
}

func (b *CredentialBackend) Delete(ctx context.Context) error {
	return b.client.Del(ctx, b.key)
}
