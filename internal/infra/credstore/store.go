package credstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/repository"
	"verify-controller/internal/infra/logging"
	"verify-controller/internal/infra/metrics"
)

// Store owns the derived API credential. It is the only holder of the pair;
// the HTTP layer asks it on every protected call.
//
// ephemeral and durable are the two backing scopes. Either may be nil, in
// which case writes to that scope are skipped.
type Store struct {
	mu          sync.RWMutex
	cred        *model.Credential
	persistence model.Persistence
	hydrated    bool

	ephemeral repository.CredentialBackend
	durable   repository.CredentialBackend
	log       *zerolog.Logger
}

func New(ephemeral, durable repository.CredentialBackend, log *zerolog.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{ephemeral: ephemeral, durable: durable, log: log, persistence: model.PersistNone}
}

// Set replaces the pair and moves it to the requested scope, clearing the other.
func (s *Store) Set(ctx context.Context, c model.Credential, p model.Persistence) error {
	if !c.Valid() {
		return fmt.Errorf("%w: credential needs api key and secret", domain.ErrInvalidArgument)
	}
	switch p {
	case model.PersistEphemeral, model.PersistDurable, model.PersistNone:
	default:
		return fmt.Errorf("%w: unknown persistence %q", domain.ErrInvalidArgument, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := c
	s.cred = &cp
	s.persistence = p
	s.hydrated = true

	var err error
	switch p {
	case model.PersistEphemeral:
		err = errors.Join(save(ctx, s.ephemeral, c), del(ctx, s.durable))
	case model.PersistDurable:
		err = errors.Join(save(ctx, s.durable, c), del(ctx, s.ephemeral))
	case model.PersistNone:
		err = errors.Join(del(ctx, s.ephemeral), del(ctx, s.durable))
	}
	if err != nil {
		s.log.Warn().Err(err).Str("persistence", string(p)).Msg("credential backing store write failed")
		return fmt.Errorf("persist credential: %w", err)
	}
	s.log.Debug().Str("persistence", string(p)).Str("api_key", logging.Redact(c.APIKey, false)).Msg("credential stored")
	return nil
}

// Clear wipes memory and both backing scopes. Called on sign-out.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	s.persistence = model.PersistNone
	// nothing left to hydrate from, even if a backend delete failed below
	s.hydrated = true
	if err := errors.Join(del(ctx, s.ephemeral), del(ctx, s.durable)); err != nil {
		s.log.Warn().Err(err).Msg("credential backing store clear failed")
		return fmt.Errorf("clear credential: %w", err)
	}
	s.log.Debug().Msg("credential cleared")
	return nil
}

// Get returns a copy of the current pair, hydrating lazily on first use
// (ephemeral scope first, then durable).
func (s *Store) Get(ctx context.Context) (model.Credential, bool) {
	s.mu.RLock()
	if s.hydrated {
		defer s.mu.RUnlock()
		if s.cred == nil {
			return model.Credential{}, false
		}
		return *s.cred, true
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		s.hydrate(ctx)
	}
	if s.cred == nil {
		return model.Credential{}, false
	}
	return *s.cred, true
}

// Has reports whether a usable pair is available.
func (s *Store) Has(ctx context.Context) bool {
	_, ok := s.Get(ctx)
	return ok
}

// Persistence returns the scope the current pair was stored with.
func (s *Store) Persistence(ctx context.Context) model.Persistence {
	s.Get(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistence
}

func (s *Store) hydrate(ctx context.Context) {
	s.hydrated = true
	for _, src := range []struct {
		name string
		b    repository.CredentialBackend
		p    model.Persistence
	}{
		{"ephemeral", s.ephemeral, model.PersistEphemeral},
		{"durable", s.durable, model.PersistDurable},
	} {
		if src.b == nil {
			continue
		}
		c, err := src.b.Load(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.log.Warn().Err(err).Str("scope", src.name).Msg("credential hydrate failed")
			}
			continue
		}
		if !c.Valid() {
			continue
		}
		s.cred = &c
		s.persistence = src.p
		metrics.IncCredentialHydration(src.name)
		s.log.Debug().Str("scope", src.name).Msg("credential hydrated")
		return
	}
	metrics.IncCredentialHydration("empty")
}

func save(ctx context.Context, b repository.CredentialBackend, c model.Credential) error {
	if b == nil {
		return nil
	}
	return b.Save(ctx, c)
}

func del(ctx context.Context, b repository.CredentialBackend) error {
	if b == nil {
		return nil
	}
	return b.Delete(ctx)
}
