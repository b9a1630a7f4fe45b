package repository

import (
	"context"

	"verify-controller/internal/domain/model"
)

// JobCache is the client-side cache of job records. The server owns the
// durable copy; implementations must return and store copies.
type JobCache interface {
	Get(ctx context.Context, id string) (*model.VerificationJob, error)
	FindByListID(ctx context.Context, listID string) (*model.VerificationJob, error)
	Put(ctx context.Context, j *model.VerificationJob) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.VerificationJob, error)
}

// JobGuard serializes lifecycle operations per job. TryAcquire never waits:
// a held key yields domain.ErrOperationInProgress.
type JobGuard interface {
	TryAcquire(ctx context.Context, key string) (release func(), err error)
	Held(ctx context.Context, key string) bool
}
