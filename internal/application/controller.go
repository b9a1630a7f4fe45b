package application

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/infra/logging"
	"verify-controller/internal/usecase"
)

// Controller composes the usecases into the operations exposed by the CLI
// and the local HTTP API. Protected operations are refused locally until a
// credential is installed.
type Controller struct {
	Session  usecase.SessionUseCase
	Jobs     usecase.JobUseCase
	Credits  usecase.CreditUseCase
	Sharing  usecase.ShareUseCase
	Activity usecase.ActivityUseCase
	Single   usecase.SingleVerifyUseCase
	Sched    Reconciler

	log *zerolog.Logger
}

func NewController(
	session usecase.SessionUseCase,
	jobs usecase.JobUseCase,
	credits usecase.CreditUseCase,
	sharing usecase.ShareUseCase,
	activity usecase.ActivityUseCase,
	single usecase.SingleVerifyUseCase,
	sched Reconciler,
	logger *zerolog.Logger,
) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Controller{
		Session:  session,
		Jobs:     jobs,
		Credits:  credits,
		Sharing:  sharing,
		Activity: activity,
		Single:   single,
		Sched:    sched,
		log:      logger,
	}
}

func (c *Controller) requireCredential(ctx context.Context) error {
	if c.Session == nil || !c.Session.IsCredentialed(ctx) {
		return domain.ErrNotCredentialed
	}
	return nil
}

// ---- session ----

func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	return c.Session.SignIn(ctx, email, password)
}

func (c *Controller) SignUp(ctx context.Context, req model.SignUpRequest) error {
	return c.Session.SignUp(ctx, req)
}

func (c *Controller) SignOut(ctx context.Context) error {
	return c.Session.SignOut(ctx)
}

func (c *Controller) RotateCredentials(ctx context.Context) error {
	return c.Session.RotateCredentials(ctx)
}

// Status is the session summary plus the last known balance, if any.
func (c *Controller) Status(ctx context.Context) (model.SessionStatus, *model.CreditBalance) {
	st := c.Session.Status(ctx)
	if c.Credits == nil {
		return st, nil
	}
	if b, ok := c.Credits.Current(); ok {
		return st, &b
	}
	return st, nil
}

// ---- jobs ----

func (c *Controller) Upload(ctx context.Context, name string, file io.Reader) (*model.VerificationJob, error) {
	if err := c.requireCredential(ctx); err != nil {
		return nil, err
	}
	return c.Jobs.Upload(ctx, name, file)
}

// StartVerification requests a run and schedules the settle-delay check.
func (c *Controller) StartVerification(ctx context.Context, jobID string) (*model.VerificationJob, error) {
	if err := c.requireCredential(ctx); err != nil {
		return nil, err
	}
	j, err := c.Jobs.Start(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if c.Sched != nil {
		c.Sched.ScheduleCheck(jobID)
	}
	return j, nil
}

func (c *Controller) CheckStatus(ctx context.Context, jobID string) (*model.VerificationJob, error) {
	if err := c.requireCredential(ctx); err != nil {
		return nil, err
	}
	if c.Sched != nil {
		return c.Sched.CheckNow(ctx, jobID)
	}
	return c.Jobs.CheckStatus(ctx, jobID)
}

func (c *Controller) Delete(ctx context.Context, jobID string) error {
	if err := c.requireCredential(ctx); err != nil {
		return err
	}
	return c.Jobs.Delete(ctx, jobID)
}

func (c *Controller) Job(ctx context.Context, jobID string) (*model.VerificationJob, error) {
	return c.Jobs.Get(ctx, jobID)
}

func (c *Controller) ListJobs(ctx context.Context, filter model.JobFilter) ([]*model.VerificationJob, error) {
	return c.Jobs.List(ctx, filter)
}

// RefreshJobs reloads the collection from the server and returns the filtered view.
func (c *Controller) RefreshJobs(ctx context.Context, filter model.JobFilter) ([]*model.VerificationJob, error) {
	if err := c.requireCredential(ctx); err != nil {
		return nil, err
	}
	var err error
	if c.Sched != nil {
		_, err = c.Sched.RefreshAll(ctx)
	} else {
		_, err = c.Jobs.Refresh(ctx)
	}
	if err != nil {
		return nil, err
	}
	return c.Jobs.List(ctx, filter)
}

func (c *Controller) Report(ctx context.Context, jobID string, filter model.ReportFilter, format model.ReportFormat, w io.Writer) error {
	if err := c.requireCredential(ctx); err != nil {
		return err
	}
	return c.Jobs.DownloadReport(ctx, jobID, filter, format, w)
}

// ---- credits ----

// Balance returns the cached balance, fetching it first when refresh is set
// or nothing has been fetched yet.
func (c *Controller) Balance(ctx context.Context, refresh bool) (model.CreditBalance, error) {
	if !refresh {
		if b, ok := c.Credits.Current(); ok {
			return b, nil
		}
	}
	if err := c.requireCredential(ctx); err != nil {
		return model.CreditBalance{}, err
	}
	return c.Credits.Refresh(ctx)
}

// ---- sharing, activity, single ----

func (c *Controller) Share(ctx context.Context, memberEmail string, ids []string, access model.AccessType) (*model.Member, error) {
	if err := c.requireCredential(ctx); err != nil {
		return nil, err
	}
	return c.Sharing.Share(ctx, memberEmail, ids, access)
}

func (c *Controller) ChangeAccess(ctx context.Context, memberID string, access model.AccessType) error {
	if err := c.requireCredential(ctx); err != nil {
		return err
	}
	return c.Sharing.ChangeAccess(ctx, memberID, access)
}

func (c *Controller) RemoveMember(ctx context.Context, memberID string) error {
	if err := c.requireCredential(ctx); err != nil {
		return err
	}
	return c.Sharing.RemoveMember(ctx, memberID)
}

func (c *Controller) Members(ctx context.Context) ([]model.Member, error) {
	if err := c.requireCredential(ctx); err != nil {
		return nil, err
	}
	return c.Sharing.Members(ctx)
}

func (c *Controller) ActivityLogs(ctx context.Context, page, limit int) ([]model.ActivityLog, error) {
	if err := c.requireCredential(ctx); err != nil {
		return nil, err
	}
	return c.Activity.List(ctx, page, limit)
}

func (c *Controller) VerifySingle(ctx context.Context, email string) (string, error) {
	if err := c.requireCredential(ctx); err != nil {
		return "", err
	}
	res, err := c.Single.VerifySingle(ctx, email)
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", email, err)
	}
	return res, nil
}
