package application

import (
	"context"

	"verify-controller/internal/domain/model"
)

// ---- small interfaces to decouple the controller from concrete components ----

// Reconciler is the surface of sched.Reconciler the controller drives.
type Reconciler interface {
	CheckNow(ctx context.Context, jobID string) (*model.VerificationJob, error)
	ScheduleCheck(jobID string)
	RefreshAll(ctx context.Context) ([]*model.VerificationJob, error)
}
