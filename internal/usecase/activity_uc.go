package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
	"verify-controller/internal/infra/logging"
)

var (
	_ ActivityUseCase     = (*activityUC)(nil)
	_ SingleVerifyUseCase = (*singleVerifyUC)(nil)
)

type ActivityUseCase interface {
	List(ctx context.Context, page, limit int) ([]model.ActivityLog, error)
}

type activityUC struct {
	logs adapter.ActivityLog
}

func NewActivityUseCase(logs adapter.ActivityLog) *activityUC {
	return &activityUC{logs: logs}
}

func (a *activityUC) List(ctx context.Context, page, limit int) ([]model.ActivityLog, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return a.logs.ActivityLogs(ctx, page, limit)
}

// SingleVerifyUseCase checks one address outside any bulk job.
type SingleVerifyUseCase interface {
	VerifySingle(ctx context.Context, email string) (string, error)
}

type singleVerifyUC struct {
	svc     adapter.VerificationService
	credits CreditUseCase
	log     *zerolog.Logger
}

func NewSingleVerifyUseCase(svc adapter.VerificationService, credits CreditUseCase, logger *zerolog.Logger) *singleVerifyUC {
	if logger == nil {
		logger = logging.Nop()
	}
	return &singleVerifyUC{svc: svc, credits: credits, log: logger}
}

func (s *singleVerifyUC) VerifySingle(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: %q is not an email address", domain.ErrInvalidArgument, email)
	}
	var end func()
	if s.credits != nil {
		end = s.credits.BeginPending()
	}
	result, err := s.svc.VerifySingle(ctx, email)
	if end != nil {
		end()
	}
	if err != nil {
		return "", err
	}
	if s.credits != nil {
		_, _ = s.credits.Refresh(ctx)
	}
	return result, nil
}
