package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
	"verify-controller/internal/infra/logging"
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

// CredentialStore is the process-wide holder of the derived API credential.
type CredentialStore interface {
	Set(ctx context.Context, c model.Credential, p model.Persistence) error
	Clear(ctx context.Context) error
	Get(ctx context.Context) (model.Credential, bool)
	Has(ctx context.Context) bool
	Persistence(ctx context.Context) model.Persistence
}

// SessionUseCase bootstraps the API credential from an identity session.
type SessionUseCase interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, req model.SignUpRequest) error
	// SignOut always clears the local credential, even when the identity
	// provider rejects the logout; its error is still returned.
	SignOut(ctx context.Context) error
	RotateCredentials(ctx context.Context) error
	IsCredentialed(ctx context.Context) bool
	Status(ctx context.Context) model.SessionStatus
	Timezone(ctx context.Context) (string, error)
}

type sessionUC struct {
	identity    adapter.IdentityProvider
	store       CredentialStore
	credits     CreditUseCase
	persistence model.Persistence
	log         *zerolog.Logger
}

func NewSessionUseCase(identity adapter.IdentityProvider, store CredentialStore, credits CreditUseCase, persistence model.Persistence, logger *zerolog.Logger) *sessionUC {
	if persistence == "" {
		persistence = model.PersistEphemeral
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &sessionUC{identity: identity, store: store, credits: credits, persistence: persistence, log: logger}
}

func (s *sessionUC) SignIn(ctx context.Context, email, password string) error {
	defer logging.TraceDuration(s.log, "SessionUC.SignIn")()
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", domain.ErrInvalidArgument)
	}
	if err := s.identity.SignIn(ctx, email, password); err != nil {
		s.log.Warn().Err(err).Msg("sign in rejected")
		return err
	}
	return s.bootstrap(ctx)
}

func (s *sessionUC) SignUp(ctx context.Context, req model.SignUpRequest) error {
	defer logging.TraceDuration(s.log, "SessionUC.SignUp")()
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return fmt.Errorf("%w: email and password are required", domain.ErrInvalidArgument)
	}
	if err := s.identity.SignUp(ctx, req); err != nil {
		s.log.Warn().Err(err).Msg("sign up rejected")
		return err
	}
	return s.bootstrap(ctx)
}

// bootstrap exchanges the fresh session for an API credential.
func (s *sessionUC) bootstrap(ctx context.Context) error {
	cred, err := s.identity.IssueCredentials(ctx)
	if err != nil {
		return fmt.Errorf("issue api credential: %w", err)
	}
	if err := s.store.Set(ctx, cred, s.persistence); err != nil {
		return err
	}
	s.log.Info().
		Str("persistence", string(s.persistence)).
		Str("api_key", logging.Redact(cred.APIKey, false)).
		Msg("api credential installed")
	if s.credits != nil {
		_, _ = s.credits.Refresh(ctx)
	}
	return nil
}

func (s *sessionUC) SignOut(ctx context.Context) error {
	defer logging.TraceDuration(s.log, "SessionUC.SignOut")()
	logoutErr := s.identity.SignOut(ctx)
	if logoutErr != nil {
		s.log.Warn().Err(logoutErr).Msg("logout call failed; clearing local credential anyway")
	}
	return errors.Join(logoutErr, s.store.Clear(ctx))
}

func (s *sessionUC) RotateCredentials(ctx context.Context) error {
	if !s.store.Has(ctx) {
		return domain.ErrNotCredentialed
	}
	cred, err := s.identity.RotateCredentials(ctx)
	if err != nil {
		return err
	}
	p := s.store.Persistence(ctx)
	if err := s.store.Set(ctx, cred, p); err != nil {
		return err
	}
	s.log.Info().Str("api_key", logging.Redact(cred.APIKey, false)).Msg("api credential rotated")
	return nil
}

func (s *sessionUC) IsCredentialed(ctx context.Context) bool {
	return s.store.Has(ctx)
}

func (s *sessionUC) Status(ctx context.Context) model.SessionStatus {
	st := model.SessionStatus{Credentialed: s.store.Has(ctx)}
	if exp, ok := s.identity.SessionExpiry(); ok {
		st.ExpiresAt = &exp
	}
	return st
}

func (s *sessionUC) Timezone(ctx context.Context) (string, error) {
	return s.identity.Timezone(ctx)
}
