package credstore

import (
	"context"

	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/repository"
	"verify-controller/internal/infra/security"
)

var _ repository.CredentialBackend = (*SealedBackend)(nil)

// SealedBackend encrypts the api secret before it reaches the inner backend.
// The api key stays readable and is used as associated data.
type SealedBackend struct {
	inner  repository.CredentialBackend
	sealer *security.Sealer
}

// Sealed wraps b. A nil sealer returns b unchanged.
func Sealed(b repository.CredentialBackend, s *security.Sealer) repository.CredentialBackend {
	if s == nil {
		return b
	}
	return &SealedBackend{inner: b, sealer: s}
}

func (b *SealedBackend) Load(ctx context.Context) (model.Credential, error) {
	c, err := b.inner.Load(ctx)
	if err != nil {
		return model.Credential{}, err
	}
	secret, err := b.sealer.Open(c.APISecret, c.APIKey)
	if err != nil {
		return model.Credential{}, err
	}
	c.APISecret = secret
	return c, nil
}

func (b *SealedBackend) Save(ctx context.Context, c model.Credential) error {
	sealed, err := b.sealer.Seal(c.APISecret, c.APIKey)
	if err != nil {
		return err
	}
	c.APISecret = sealed
	return b.inner.Save(ctx, c)
}

func (b *SealedBackend) Delete(ctx context.Context) error {
	return b.inner.Delete(ctx)
}
