package repository

import (
	"context"

	"verify-controller/internal/domain/model"
)

// CredentialBackend is one backing scope of the credential store.
// Load returns domain.ErrNotFound when nothing is stored.
type CredentialBackend interface {
	Load(ctx context.Context) (model.Credential, error)
	Save(ctx context.Context, c model.Credential) error
	Delete(ctx context.Context) error
}
