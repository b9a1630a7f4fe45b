// File: internal/usecase/job_uc.go
package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
	"verify-controller/internal/domain/ports/repository"
	"verify-controller/internal/infra/logging"
	"verify-controller/internal/infra/metrics"
	"verify-controller/internal/infra/report"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// maxRefreshPages caps one Refresh walk over the server listing.
const maxRefreshPages = 200

// JobUseCase drives verification jobs through their lifecycle and keeps the
// local cache reconciled with the server.
//
// Lifecycle calls on one job are serialized by the in-flight guard; a second
// call while one is outstanding fails fast with domain.ErrOperationInProgress.
// Local rejections (state, credits, guard) happen before any network I/O.
type JobUseCase interface {
	Upload(ctx context.Context, name string, file io.Reader) (*model.VerificationJob, error)
	Start(ctx context.Context, id string) (*model.VerificationJob, error)
	CheckStatus(ctx context.Context, id string) (*model.VerificationJob, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.VerificationJob, error)
	List(ctx context.Context, filter model.JobFilter) ([]*model.VerificationJob, error)
	// Refresh pulls the whole server collection into the cache.
	Refresh(ctx context.Context) ([]*model.VerificationJob, error)
	DownloadReport(ctx context.Context, id string, filter model.ReportFilter, format model.ReportFormat, w io.Writer) error
	ActiveJobIDs(ctx context.Context) ([]string, error)
}

type jobUC struct {
	svc      adapter.VerificationService
	cache    repository.JobCache
	guard    repository.JobGuard
	credits  CreditUseCase
	pageSize int
	newID    func() string
	log      *zerolog.Logger
}

func NewJobUseCase(
	svc adapter.VerificationService,
	cache repository.JobCache,
	guard repository.JobGuard,
	credits CreditUseCase,
	pageSize int,
	logger *zerolog.Logger,
) *jobUC {
	if pageSize <= 0 {
		pageSize = 50
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &jobUC{
		svc:      svc,
		cache:    cache,
		guard:    guard,
		credits:  credits,
		pageSize: pageSize,
		newID:    func() string { return ulid.Make().String() },
		log:      logger,
	}
}

// guardKey prefers the server id so that controllers with separate caches
// but a shared guard still serialize on the same job.
func guardKey(j *model.VerificationJob) string {
	if j.ListID != "" {
		return "list:" + j.ListID
	}
	return "job:" + j.ID
}

func jobKey(j *model.VerificationJob) adapter.JobKey {
	return adapter.JobKey{RemoteJobRef: j.RemoteJobRef, ListID: j.ListID}
}

func (uc *jobUC) Upload(ctx context.Context, name string, file io.Reader) (*model.VerificationJob, error) {
	defer logging.TraceDuration(uc.log, "JobUC.Upload")()
	if file == nil {
		return nil, fmt.Errorf("%w: upload needs a file", domain.ErrInvalidArgument)
	}
	job, err := model.NewUploadingJob(uc.newID(), name)
	if err != nil {
		return nil, fmt.Errorf("%w: upload needs a name", err)
	}
	ctx = logging.WithJobID(ctx, job.ID)
	l := logging.With(ctx, uc.log)

	release, err := uc.guard.TryAcquire(ctx, guardKey(job))
	if err != nil {
		return nil, err
	}
	defer release()

	if err := uc.cache.Put(ctx, job); err != nil {
		return nil, err
	}

	rl, err := uc.svc.Upload(ctx, job.Name, file)
	if err != nil {
		// the placeholder never existed server-side
		_ = uc.cache.Delete(ctx, job.ID)
		metrics.IncJobOp("upload", "error")
		l.Warn().Err(err).Str("name", job.Name).Msg("upload failed")
		return nil, err
	}

	// A refresh that ran during the upload may already have cached this list
	// under another id; keep the upload's record.
	if dup, err := uc.cache.FindByListID(ctx, rl.ListID); err == nil && dup.ID != job.ID {
		_ = uc.cache.Delete(ctx, dup.ID)
	}

	job.ListID = rl.ListID
	u := rl.Update
	// An upload acknowledgment only ever lands in processing or unverified.
	if u.Status != nil && *u.Status != model.JobStatusProcessing && *u.Status != model.JobStatusUnverified {
		l.Warn().Str("reported", string(*u.Status)).Msg("upload reported an unexpected status; treating as unverified")
		u.Status = nil
	}
	from, _ := job.Apply(u, model.CauseReconcile)
	if job.Status == model.JobStatusUploading {
		job.Status = model.JobStatusUnverified
	}
	metrics.IncTransition(string(from), string(job.Status))
	if err := uc.cache.Put(ctx, job); err != nil {
		return nil, err
	}
	metrics.IncJobOp("upload", "ok")
	l.Info().Str("list_id", job.ListID).Int("records", job.RecordCount).Msg("upload complete")

	uc.refreshCredits(ctx)
	return job.Clone(), nil
}

func (uc *jobUC) Start(ctx context.Context, id string) (*model.VerificationJob, error) {
	defer logging.TraceDuration(uc.log, "JobUC.Start")()
	ctx = logging.WithJobID(ctx, id)
	l := logging.With(ctx, uc.log)

	job, err := uc.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkStartable(job); err != nil {
		return nil, err
	}

	release, err := uc.guard.TryAcquire(ctx, guardKey(job))
	if err != nil {
		metrics.IncJobOp("start", "in_progress")
		return nil, err
	}
	defer release()

	// the record may have moved while we were not holding the guard
	if job, err = uc.cache.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := checkStartable(job); err != nil {
		return nil, err
	}

	end := uc.beginPending()
	ack, err := uc.svc.Start(ctx, jobKey(job))
	end()
	if err != nil {
		metrics.IncJobOp("start", resultLabel(err))
		l.Warn().Err(err).Msg("start rejected")
		return nil, err
	}

	// The ack is not a terminal status: take processing or verifying from it,
	// anything else means the run was accepted and is verifying.
	target := model.JobStatusVerifying
	if ack.Status != nil && ack.Status.Active() {
		target = *ack.Status
	}
	ack.Status = &target
	uc.apply(ctx, job, ack, model.CauseStart)
	if err := uc.cache.Put(ctx, job); err != nil {
		return nil, err
	}
	metrics.IncJobOp("start", "ok")
	l.Info().Str("status", string(job.Status)).Msg("verification started")

	uc.refreshCredits(ctx)
	return job.Clone(), nil
}

func checkStartable(job *model.VerificationJob) error {
	if !model.CanStart(job.Status) {
		return fmt.Errorf("%w: cannot start a %s job", domain.ErrInvalidState, job.Status)
	}
	if job.RemoteJobRef == "" {
		return fmt.Errorf("%w: job has no remote reference yet", domain.ErrInvalidState)
	}
	if job.RequiresCredits {
		metrics.IncAdmissionBlock()
		return domain.ErrInsufficientCredits
	}
	return nil
}

func (uc *jobUC) CheckStatus(ctx context.Context, id string) (*model.VerificationJob, error) {
	defer logging.TraceDuration(uc.log, "JobUC.CheckStatus")()
	ctx = logging.WithJobID(ctx, id)

	job, err := uc.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.RemoteJobRef == "" {
		return nil, fmt.Errorf("%w: job has no remote reference yet", domain.ErrInvalidState)
	}

	release, err := uc.guard.TryAcquire(ctx, guardKey(job))
	if err != nil {
		metrics.IncJobOp("status", "in_progress")
		return nil, err
	}
	defer release()

	if job, err = uc.cache.Get(ctx, id); err != nil {
		return nil, err
	}
	u, err := uc.svc.Status(ctx, jobKey(job))
	if err != nil {
		metrics.IncJobOp("status", resultLabel(err))
		logging.With(ctx, uc.log).Warn().Err(err).Msg("status check failed")
		return nil, err
	}
	if uc.apply(ctx, job, u, model.CauseReconcile) == model.MergeApplied {
		if err := uc.cache.Put(ctx, job); err != nil {
			return nil, err
		}
	}
	metrics.IncJobOp("status", "ok")
	return job.Clone(), nil
}

func (uc *jobUC) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(uc.log, "JobUC.Delete")()
	ctx = logging.WithJobID(ctx, id)

	job, err := uc.cache.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == model.JobStatusUploading || job.ListID == "" {
		return fmt.Errorf("%w: cannot delete a job that is still uploading", domain.ErrInvalidState)
	}

	release, err := uc.guard.TryAcquire(ctx, guardKey(job))
	if err != nil {
		metrics.IncJobOp("delete", "in_progress")
		return err
	}
	defer release()

	if err := uc.svc.Delete(ctx, jobKey(job)); err != nil {
		metrics.IncJobOp("delete", resultLabel(err))
		logging.With(ctx, uc.log).Warn().Err(err).Msg("delete rejected")
		return err
	}
	if err := uc.cache.Delete(ctx, id); err != nil {
		return err
	}
	metrics.IncJobOp("delete", "ok")
	logging.With(ctx, uc.log).Info().Msg("job deleted")

	uc.refreshCredits(ctx)
	return nil
}

func (uc *jobUC) Get(ctx context.Context, id string) (*model.VerificationJob, error) {
	return uc.cache.Get(ctx, id)
}

func (uc *jobUC) List(ctx context.Context, filter model.JobFilter) ([]*model.VerificationJob, error) {
	all, err := uc.cache.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, j := range all {
		if filter.Match(j) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (uc *jobUC) Refresh(ctx context.Context) ([]*model.VerificationJob, error) {
	defer logging.TraceDuration(uc.log, "JobUC.Refresh")()

	seen := make(map[string]struct{})
	complete := false
	for n := 0; n < maxRefreshPages; n++ {
		skip := n * uc.pageSize
		page, err := uc.svc.List(ctx, adapter.ListQuery{Limit: uc.pageSize, Skip: skip, SortOrder: "desc"})
		if err != nil {
			metrics.IncJobOp("refresh", resultLabel(err))
			return nil, err
		}
		fresh := 0
		for _, rl := range page.Items {
			if _, dup := seen[rl.ListID]; !dup {
				fresh++
			}
			seen[rl.ListID] = struct{}{}
			if err := uc.mergeListed(ctx, rl); err != nil {
				return nil, err
			}
		}
		// A page with nothing new means the server ignored skip/limit.
		if fresh == 0 ||
			len(page.Items) < uc.pageSize ||
			(page.Pages > 0 && n+1 >= page.Pages) ||
			(page.TotalCount > 0 && len(seen) >= page.TotalCount) {
			complete = true
			break
		}
	}
	if !complete {
		uc.log.Warn().Int("pages", maxRefreshPages).Msg("refresh stopped at page limit; pruning skipped")
		metrics.IncJobOp("refresh", "ok")
		return uc.List(ctx, model.JobFilter{})
	}

	cached, err := uc.cache.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, j := range cached {
		if j.Status == model.JobStatusUploading || j.ListID == "" {
			continue
		}
		if _, ok := seen[j.ListID]; ok {
			continue
		}
		release, err := uc.guard.TryAcquire(ctx, guardKey(j))
		if err != nil {
			continue
		}
		_ = uc.cache.Delete(ctx, j.ID)
		release()
		uc.log.Debug().Str("job_id", j.ID).Str("list_id", j.ListID).Msg("pruned job no longer listed by server")
	}
	metrics.IncJobOp("refresh", "ok")
	return uc.List(ctx, model.JobFilter{})
}

// mergeListed folds one listed record into the cache. Jobs with an operation
// in flight are skipped so their optimistic state survives.
func (uc *jobUC) mergeListed(ctx context.Context, rl adapter.RemoteList) error {
	existing, err := uc.cache.FindByListID(ctx, rl.ListID)
	if errors.Is(err, domain.ErrNotFound) {
		if rl.Update.Status == nil {
			uc.log.Warn().Str("list_id", rl.ListID).Msg("listed record has no recognizable status; skipped")
			return nil
		}
		job := &model.VerificationJob{
			ID:        uc.newID(),
			ListID:    rl.ListID,
			Status:    *rl.Update.Status,
			CreatedAt: time.Now(),
		}
		job.Apply(rl.Update, model.CauseReconcile)
		return uc.cache.Put(ctx, job)
	}
	if err != nil {
		return err
	}

	release, err := uc.guard.TryAcquire(ctx, guardKey(existing))
	if errors.Is(err, domain.ErrOperationInProgress) {
		return nil
	}
	if err != nil {
		return err
	}
	defer release()

	job, err := uc.cache.Get(ctx, existing.ID)
	if err != nil {
		return nil
	}
	if uc.apply(logging.WithJobID(ctx, job.ID), job, rl.Update, model.CauseReconcile) == model.MergeApplied {
		return uc.cache.Put(ctx, job)
	}
	return nil
}

func (uc *jobUC) DownloadReport(ctx context.Context, id string, filter model.ReportFilter, format model.ReportFormat, w io.Writer) error {
	defer logging.TraceDuration(uc.log, "JobUC.DownloadReport")()

	job, err := uc.cache.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusVerified || job.RemoteJobRef == "" {
		return fmt.Errorf("%w: report is only available for verified jobs", domain.ErrInvalidState)
	}
	if filter == "" {
		filter = model.ReportAll
	}

	switch format {
	case model.ReportXLSX:
		var buf bytes.Buffer
		if err := uc.svc.Download(ctx, jobKey(job), filter, &buf); err != nil {
			return err
		}
		return report.CSVToXLSX(&buf, w)
	case model.ReportCSV, "":
		return uc.svc.Download(ctx, jobKey(job), filter, w)
	default:
		return fmt.Errorf("%w: unknown report format %q", domain.ErrInvalidArgument, format)
	}
}

func (uc *jobUC) ActiveJobIDs(ctx context.Context) ([]string, error) {
	all, err := uc.cache.List(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, j := range all {
		if j.Status.Active() && j.RemoteJobRef != "" {
			ids = append(ids, j.ID)
		}
	}
	return ids, nil
}

// apply merges u into job, logging and counting stale responses.
func (uc *jobUC) apply(ctx context.Context, job *model.VerificationJob, u model.StatusUpdate, cause model.TransitionCause) model.MergeResult {
	from, res := job.Apply(u, cause)
	if res == model.MergeStale {
		metrics.IncStaleResponse(string(from), string(*u.Status))
		logging.With(ctx, uc.log).Warn().
			Str("current", string(from)).
			Str("reported", string(*u.Status)).
			Str("cause", cause.String()).
			Msg("reconciliation: discarded stale status")
		return res
	}
	if from != job.Status {
		metrics.IncTransition(string(from), string(job.Status))
		logging.With(ctx, uc.log).Info().
			Str("from", string(from)).
			Str("to", string(job.Status)).
			Str("cause", cause.String()).
			Msg("job transition")
	}
	return res
}

func (uc *jobUC) beginPending() func() {
	if uc.credits == nil {
		return func() {}
	}
	return uc.credits.BeginPending()
}

func (uc *jobUC) refreshCredits(ctx context.Context) {
	if uc.credits == nil {
		return
	}
	_, _ = uc.credits.Refresh(ctx)
}

// resultLabel buckets an error for the operations counter.
func resultLabel(err error) string {
	var re *domain.RemoteError
	var te *domain.TransportError
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return "permission_denied"
	case errors.As(err, &re):
		return "remote_error"
	case errors.As(err, &te):
		return "transport_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
