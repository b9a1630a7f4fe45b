package model

import (
	"fmt"
	"strings"
	"time"

	"verify-controller/internal/domain"
)

type JobStatus string

const (
	JobStatusUploading  JobStatus = "uploading"  // transfer/ingest in flight
	JobStatusProcessing JobStatus = "processing" // server accepted the run, not yet verifying
	JobStatusVerifying  JobStatus = "verifying"  // records are being verified
	JobStatusVerified   JobStatus = "verified"   // run finished; report available
	JobStatusUnverified JobStatus = "unverified" // uploaded, never (successfully) verified
)

// AllJobStatuses lists every reachable status.
var AllJobStatuses = []JobStatus{
	JobStatusUploading,
	JobStatusProcessing,
	JobStatusVerifying,
	JobStatusVerified,
	JobStatusUnverified,
}

// ParseJobStatus maps a server string onto a known status.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown job status %q", domain.ErrInvalidArgument, s)
	}
	return st, nil
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusUploading, JobStatusProcessing, JobStatusVerifying, JobStatusVerified, JobStatusUnverified:
		return true
	default:
		return false
	}
}

// Active reports whether the server is working on the job.
func (s JobStatus) Active() bool {
	return s == JobStatusProcessing || s == JobStatusVerifying
}

// TransitionCause distinguishes moves requested by this client from moves
// learned from the server.
type TransitionCause int

const (
	CauseStart TransitionCause = iota
	CauseReconcile
)

func (c TransitionCause) String() string {
	if c == CauseStart {
		return "start"
	}
	return "reconcile"
}

var startEdges = map[JobStatus][]JobStatus{
	JobStatusUnverified: {JobStatusProcessing, JobStatusVerifying},
	JobStatusVerified:   {JobStatusProcessing, JobStatusVerifying},
}

// Reconcile edges only ever move forward, or fall back to unverified when a
// run failed. Work finished elsewhere (another member, the web dashboard)
// shows up as a jump straight to verified.
var reconcileEdges = map[JobStatus][]JobStatus{
	JobStatusUploading:  {JobStatusProcessing, JobStatusVerifying, JobStatusVerified, JobStatusUnverified},
	JobStatusUnverified: {JobStatusProcessing, JobStatusVerifying, JobStatusVerified},
	JobStatusProcessing: {JobStatusVerifying, JobStatusVerified, JobStatusUnverified},
	JobStatusVerifying:  {JobStatusVerified, JobStatusUnverified},
}

// CanTransition enforces the job state machine. A same-status move is always
// allowed so that other fields can still be refreshed.
func CanTransition(from, to JobStatus, cause TransitionCause) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	edges := reconcileEdges
	if cause == CauseStart {
		edges = startEdges
	}
	for _, s := range edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart reports whether a verification run may be requested from status s.
func CanStart(s JobStatus) bool {
	_, ok := startEdges[s]
	return ok
}

// VerificationJob is the locally cached view of one verification run.
type VerificationJob struct {
	ID              string    `json:"id"`             // local ULID
	ListID          string    `json:"list_id"`        // server record id
	RemoteJobRef    string    `json:"remote_job_ref"` // remote verification id
	Name            string    `json:"name"`
	RecordCount     int       `json:"record_count"`
	Status          JobStatus `json:"status"`
	CreditsConsumed *int64    `json:"credits_consumed,omitempty"`
	RequiresCredits bool      `json:"requires_credits"`
	ProviderStatus  string    `json:"provider_status,omitempty"` // upstream verifier sub-status, display only
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewUploadingJob creates the placeholder record for an upload in flight.
func NewUploadingJob(id, name string) (*VerificationJob, error) {
	if id == "" || strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &VerificationJob{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Status:    JobStatusUploading,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep copy so callers never share the cached record.
func (j *VerificationJob) Clone() *VerificationJob {
	if j == nil {
		return nil
	}
	cp := *j
	if j.CreditsConsumed != nil {
		v := *j.CreditsConsumed
		cp.CreditsConsumed = &v
	}
	return &cp
}

// StatusUpdate is a partial server payload. Nil fields are left untouched.
type StatusUpdate struct {
	Status          *JobStatus
	CreditsConsumed *int64
	RecordCount     *int
	RequiresCredits *bool
	ProviderStatus  *string
	RemoteJobRef    *string
	Name            *string
	CreatedAt       *time.Time
}

// MergeResult describes what Apply did with an update.
type MergeResult int

const (
	MergeApplied MergeResult = iota
	MergeStale
)

// Apply merges server truth into the job. A status the state machine does not
// allow from the current one is treated as stale and the whole update is
// dropped, so an earlier lifecycle position never overwrites a later one.
func (j *VerificationJob) Apply(u StatusUpdate, cause TransitionCause) (from JobStatus, result MergeResult) {
	from = j.Status
	if u.Status != nil && !CanTransition(j.Status, *u.Status, cause) {
		return from, MergeStale
	}
	if u.Status != nil {
		j.Status = *u.Status
	}
	if u.CreditsConsumed != nil {
		v := *u.CreditsConsumed
		j.CreditsConsumed = &v
	}
	if u.RequiresCredits != nil {
		j.RequiresCredits = *u.RequiresCredits
	}
	if u.ProviderStatus != nil {
		j.ProviderStatus = *u.ProviderStatus
	}
	// immutable once known
	if u.RecordCount != nil && j.RecordCount == 0 {
		j.RecordCount = *u.RecordCount
	}
	if u.Name != nil && j.Name == "" {
		j.Name = *u.Name
	}
	if u.RemoteJobRef != nil && *u.RemoteJobRef != "" && j.RemoteJobRef == "" {
		j.RemoteJobRef = *u.RemoteJobRef
	}
	if u.CreatedAt != nil && !u.CreatedAt.IsZero() {
		j.CreatedAt = *u.CreatedAt
	}
	j.UpdatedAt = time.Now()
	return from, MergeApplied
}

// JobFilter narrows List results. Zero value matches everything.
type JobFilter struct {
	Status JobStatus
}

func (f JobFilter) Match(j *VerificationJob) bool {
	return f.Status == "" || j.Status == f.Status
}
