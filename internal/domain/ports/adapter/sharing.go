package adapter

import (
	"context"

	"verify-controller/internal/domain/model"
)

// SharingService manages share grants; read/write is enforced server-side.
type SharingService interface {
	FindMemberByEmail(ctx context.Context, email string) (*model.Member, error)
	Share(ctx context.Context, memberID string, listIDs []string, access model.AccessType) error
	ChangeAccess(ctx context.Context, memberID string, access model.AccessType) error
	RemoveMember(ctx context.Context, memberID string) error
	Members(ctx context.Context) ([]model.Member, error)
}

// ActivityLog is the read-only audit trail.
type ActivityLog interface {
	ActivityLogs(ctx context.Context, page, limit int) ([]model.ActivityLog, error)
}
