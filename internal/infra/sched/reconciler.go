package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"verify-controller/internal/config"
	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/infra/logging"
	"verify-controller/internal/infra/metrics"
	"verify-controller/internal/infra/worker"
	"verify-controller/internal/usecase"
)

// Reconciler keeps cached jobs in step with the server: delayed checks after
// a start, explicit checks, collection refreshes and an optional poll of
// active jobs. Failed checks are logged and never retried here.
type Reconciler struct {
	jobs usecase.JobUseCase
	pool *worker.Pool
	cfg  config.ReconcileConfig
	log  *zerolog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stopped bool
}

func NewReconciler(jobs usecase.JobUseCase, pool *worker.Pool, cfg config.ReconcileConfig, logger *zerolog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Nop()
	}
	l := logger.With().Str("component", "Reconciler").Logger()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Reconciler{
		jobs:   jobs,
		pool:   pool,
		cfg:    cfg,
		log:    &l,
		timers: make(map[string]*time.Timer),
	}
}

// CheckNow requests the job's status immediately.
func (r *Reconciler) CheckNow(ctx context.Context, jobID string) (*model.VerificationJob, error) {
	j, err := r.jobs.CheckStatus(ctx, jobID)
	r.record(ctx, "explicit", jobID, err)
	return j, err
}

// ScheduleCheck queues a status check once the settle delay has passed. A
// second call for the same job replaces the pending one.
func (r *Reconciler) ScheduleCheck(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if t, ok := r.timers[jobID]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(r.cfg.SettleDelay, func() {
		r.mu.Lock()
		if r.timers[jobID] == t {
			delete(r.timers, jobID)
		}
		r.mu.Unlock()

		err := r.pool.Submit(func(ctx context.Context) error {
			_, err := r.jobs.CheckStatus(ctx, jobID)
			r.record(ctx, "scheduled", jobID, err)
			return nil
		})
		if err != nil {
			r.log.Warn().Err(err).Str("job_id", jobID).Msg("scheduled check not queued")
		}
	})
	r.timers[jobID] = t
}

// Pending reports how many scheduled checks are still waiting on their timer.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (r *Reconciler) RefreshAll(ctx context.Context) ([]*model.VerificationJob, error) {
	jobs, err := r.jobs.Refresh(ctx)
	r.record(ctx, "refresh", "", err)
	return jobs, err
}

// Start runs the worker pool and, with a positive poll interval, the poll loop.
// Calling Start more than once has no effect.
func (r *Reconciler) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true

	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.pool.Start(ctx)

	r.done = make(chan struct{})
	if r.cfg.PollInterval <= 0 {
		close(r.done)
		return
	}
	go r.loop(ctx)
	r.log.Info().Dur("interval", r.cfg.PollInterval).Msg("polling active jobs")
}

func (r *Reconciler) loop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer func() {
		ticker.Stop()
		close(r.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.PollOnce(ctx)
		}
	}
}

// PollOnce checks every active job, a bounded number at a time.
func (r *Reconciler) PollOnce(ctx context.Context) {
	ids, err := r.jobs.ActiveJobIDs(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("list active jobs")
		return
	}
	if len(ids) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := r.jobs.CheckStatus(ctx, id)
			r.record(ctx, "poll", id, err)
			return nil
		})
	}
	_ = g.Wait()
}

// Stop cancels pending timers, ends the poll loop and drains the pool.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	r.pool.Stop()
	r.log.Info().Msg("reconciler stopped")
}

func (r *Reconciler) record(ctx context.Context, trigger, jobID string, err error) {
	switch {
	case err == nil:
		metrics.IncReconcileRun(trigger, "ok")
	case errors.Is(err, domain.ErrOperationInProgress):
		metrics.IncReconcileRun(trigger, "skipped")
		r.log.Debug().Str("trigger", trigger).Str("job_id", jobID).Msg("check skipped, operation in flight")
	default:
		metrics.IncReconcileRun(trigger, "error")
		logging.With(ctx, r.log).Warn().Err(err).Str("trigger", trigger).Str("job_id", jobID).Msg("reconciliation failed")
	}
}
