package adapter

import (
	"context"
	"io"

	"verify-controller/internal/domain/model"
)

// RemoteList is one server-side list record as the verification service reports it.
type RemoteList struct {
	ListID string
	Update model.StatusUpdate
}

// ListPage is a page of the server's list collection.
type ListPage struct {
	Items      []RemoteList
	Page       int
	Pages      int
	TotalCount int
}

// ListQuery mirrors the collection endpoint's query parameters.
type ListQuery struct {
	Limit     int
	Skip      int
	SortOrder string // asc | desc
	Status    model.JobStatus
}

// JobKey addresses a job on the remote service.
type JobKey struct {
	RemoteJobRef string
	ListID       string
}

// VerificationService is the hex port for the remote verification API.
// All of its paths live on the protected surface.
type VerificationService interface {
	// Upload ingests a record batch and returns the created list.
	Upload(ctx context.Context, name string, file io.Reader) (RemoteList, error)
	// Start requests a verification run; the returned status is only an acknowledgment.
	Start(ctx context.Context, key JobKey) (model.StatusUpdate, error)
	Status(ctx context.Context, key JobKey) (model.StatusUpdate, error)
	Delete(ctx context.Context, key JobKey) error
	// Download streams the CSV report for a finished run into w.
	Download(ctx context.Context, key JobKey, filter model.ReportFilter, w io.Writer) error
	List(ctx context.Context, q ListQuery) (ListPage, error)
	// VerifySingle checks one address and returns the service's verdict.
	VerifySingle(ctx context.Context, email string) (string, error)
}
