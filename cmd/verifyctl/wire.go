package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"verify-controller/internal/application"
	"verify-controller/internal/config"
	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/repository"
	"verify-controller/internal/infra/adapters/verifyapi"
	"verify-controller/internal/infra/api"
	"verify-controller/internal/infra/credstore"
	"verify-controller/internal/infra/httpclient"
	"verify-controller/internal/infra/inflight"
	"verify-controller/internal/infra/logging"
	"verify-controller/internal/infra/memory"
	red "verify-controller/internal/infra/redis"
	"verify-controller/internal/infra/sched"
	"verify-controller/internal/infra/security"
	"verify-controller/internal/infra/worker"
	"verify-controller/internal/usecase"
)

var _ api.Controller = (*application.Controller)(nil)

// app is the fully wired controller for one process.
type app struct {
	cfg   *config.Config
	log   *zerolog.Logger
	ctl   *application.Controller
	rec   *sched.Reconciler
	redis *red.Client
}

func (a *app) Close() {
	if a.rec != nil {
		a.rec.Stop()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath, devMode)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logging.Global = *logger
	a := &app{cfg: cfg, log: logger}

	if cfg.Credentials.Backend == "redis" || cfg.Cache.Backend == "redis" {
		a.redis, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	// ---- credentials ----
	ephemeral, durable, err := a.credentialBackends()
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Credentials.SealKey != "" {
		sealer, err := security.NewSealer(cfg.Credentials.SealKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		ephemeral, durable = credstore.Sealed(ephemeral, sealer), credstore.Sealed(durable, sealer)
	}
	store := credstore.New(ephemeral, durable, logger)
	persistence, err := model.ParsePersistence(cfg.Credentials.Persistence)
	if err != nil {
		a.Close()
		return nil, err
	}

	// ---- remote adapters ----
	client, err := httpclient.New(cfg.API, store, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	verifier := verifyapi.NewVerifier(client)
	ledger := verifyapi.NewLedger(client)
	identity := verifyapi.NewIdentity(client)
	sharing := verifyapi.NewSharing(client)

	// ---- cache & guard ----
	var (
		cache repository.JobCache
		guard repository.JobGuard
	)
	switch cfg.Cache.Backend {
	case "redis":
		ns := cfg.Credentials.Namespace
		cache = red.NewJobCache(a.redis, ns, cfg.Redis.TTL)
		guard = red.NewJobGuard(a.redis, ns, cfg.Cache.GuardTTL, logger)
	default:
		cache = memory.NewJobCache()
		guard = inflight.New()
	}

	// ---- use cases ----
	creditUC := usecase.NewCreditUseCase(ledger, logger)
	jobUC := usecase.NewJobUseCase(verifier, cache, guard, creditUC, cfg.Reconcile.PageSize, logger)
	sessionUC := usecase.NewSessionUseCase(identity, store, creditUC, persistence, logger)
	shareUC := usecase.NewShareUseCase(sharing, cache, logger)
	activityUC := usecase.NewActivityUseCase(sharing)
	singleUC := usecase.NewSingleVerifyUseCase(verifier, creditUC, logger)

	// ---- reconciliation ----
	pool := worker.NewPool(cfg.Reconcile.Workers, logger)
	a.rec = sched.NewReconciler(jobUC, pool, cfg.Reconcile, logger)

	a.ctl = application.NewController(sessionUC, jobUC, creditUC, shareUC, activityUC, singleUC, a.rec, logger)
	return a, nil
}

func (a *app) credentialBackends() (ephemeral, durable repository.CredentialBackend, err error) {
	c := a.cfg.Credentials
	switch c.Backend {
	case "memory":
		return credstore.NewMemoryBackend(), credstore.NewMemoryBackend(), nil
	case "file":
		path, err := credstore.DurablePath(c.Dir, c.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return credstore.NewFileBackend(credstore.EphemeralPath(c.Namespace)), credstore.NewFileBackend(path), nil
	case "redis":
		return red.NewEphemeralCredentialBackend(a.redis, c.Namespace, c.EphemeralTTL),
			red.NewDurableCredentialBackend(a.redis, c.Namespace), nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown credentials backend %q", domain.ErrInvalidArgument, c.Backend)
	}
}

// withApp builds the app, runs fn and tears everything down.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// exitCode gives scripts something to branch on.
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotCredentialed):
		return 3
	case errors.Is(err, domain.ErrInsufficientCredits):
		return 4
	case errors.Is(err, domain.ErrOperationInProgress), errors.Is(err, domain.ErrInvalidState):
		return 5
	case errors.Is(err, domain.ErrPermissionDenied):
		return 6
	default:
		return 1
	}
}
