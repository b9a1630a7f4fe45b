package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"verify-controller/internal/config"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/infra/logging"
)

// Controller is what the local API exposes; application.Controller satisfies it.
type Controller interface {
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	Status(ctx context.Context) (model.SessionStatus, *model.CreditBalance)
	Balance(ctx context.Context, refresh bool) (model.CreditBalance, error)

	Upload(ctx context.Context, name string, file io.Reader) (*model.VerificationJob, error)
	StartVerification(ctx context.Context, jobID string) (*model.VerificationJob, error)
	CheckStatus(ctx context.Context, jobID string) (*model.VerificationJob, error)
	Delete(ctx context.Context, jobID string) error
	Job(ctx context.Context, jobID string) (*model.VerificationJob, error)
	ListJobs(ctx context.Context, filter model.JobFilter) ([]*model.VerificationJob, error)
	RefreshJobs(ctx context.Context, filter model.JobFilter) ([]*model.VerificationJob, error)
	Report(ctx context.Context, jobID string, filter model.ReportFilter, format model.ReportFormat, w io.Writer) error

	Share(ctx context.Context, memberEmail string, ids []string, access model.AccessType) (*model.Member, error)
	Members(ctx context.Context) ([]model.Member, error)
	ActivityLogs(ctx context.Context, page, limit int) ([]model.ActivityLog, error)
	VerifySingle(ctx context.Context, email string) (string, error)
}

const maxUploadBytes = 64 << 20

type Server struct {
	ctl    Controller
	cfg    config.ServerConfig
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(ctl Controller, cfg config.ServerConfig, logger *zerolog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	l := logger.With().Str("component", "API").Logger()
	return &Server{ctl: ctl, cfg: cfg, log: &l}
}

// Routes builds the router. /health and /metrics stay open; /v1 sits behind
// the bearer key when one is configured.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerKey(s.cfg.APIKey))

		r.Get("/session", s.handleSession)
		r.Post("/session/signin", s.handleSignIn)
		r.Post("/session/signout", s.handleSignOut)
		r.Get("/credits", s.handleCredits)

		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs", s.handleUpload)
		r.Post("/jobs/refresh", s.handleRefresh)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Post("/jobs/{id}/start", s.handleStart)
		r.Post("/jobs/{id}/status", s.handleStatus)
		r.Delete("/jobs/{id}", s.handleDelete)
		r.Get("/jobs/{id}/report", s.handleReport)

		r.Get("/members", s.handleMembers)
		r.Post("/share", s.handleShare)
		r.Get("/activity", s.handleActivity)
		r.Post("/verify", s.handleVerify)
	})

	return Chain(r, TraceID(), RequestLog(s.log), Recover(s.log))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("local api listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
