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
	"verify-controller/internal/domain/ports/repository"
	"verify-controller/internal/infra/logging"
)

// Compile-time check
var _ ShareUseCase = (*shareUC)(nil)

// ShareUseCase grants other accounts read or write access to lists. The
// server enforces the grant; a read-only holder gets ErrPermissionDenied on
// state-changing calls.
type ShareUseCase interface {
	// Share accepts local job ids or server list ids.
	Share(ctx context.Context, memberEmail string, ids []string, access model.AccessType) (*model.Member, error)
	ChangeAccess(ctx context.Context, memberID string, access model.AccessType) error
	RemoveMember(ctx context.Context, memberID string) error
	Members(ctx context.Context) ([]model.Member, error)
}

type shareUC struct {
	sharing adapter.SharingService
	cache   repository.JobCache
	log     *zerolog.Logger
}

func NewShareUseCase(sharing adapter.SharingService, cache repository.JobCache, logger *zerolog.Logger) *shareUC {
	if logger == nil {
		logger = logging.Nop()
	}
	return &shareUC{sharing: sharing, cache: cache, log: logger}
}

func (s *shareUC) Share(ctx context.Context, memberEmail string, ids []string, access model.AccessType) (*model.Member, error) {
	memberEmail = strings.TrimSpace(memberEmail)
	if memberEmail == "" || len(ids) == 0 {
		return nil, fmt.Errorf("%w: member email and at least one list are required", domain.ErrInvalidArgument)
	}
	if _, err := model.ParseAccessType(string(access)); err != nil {
		return nil, err
	}

	listIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		listID, err := s.resolveListID(ctx, id)
		if err != nil {
			return nil, err
		}
		listIDs = append(listIDs, listID)
	}

	member, err := s.sharing.FindMemberByEmail(ctx, memberEmail)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no account for %s", domain.ErrNotFound, memberEmail)
		}
		return nil, err
	}
	if err := s.sharing.Share(ctx, member.ID, listIDs, access); err != nil {
		return nil, err
	}
	member.AccessType = access
	s.log.Info().Str("member_id", member.ID).Int("lists", len(listIDs)).Str("access", string(access)).Msg("lists shared")
	return member, nil
}

// resolveListID maps a cached job id onto its list id; anything else is
// passed through as a list id.
func (s *shareUC) resolveListID(ctx context.Context, id string) (string, error) {
	j, err := s.cache.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return id, nil
	}
	if err != nil {
		return "", err
	}
	if j.ListID == "" {
		return "", fmt.Errorf("%w: job %s has not finished uploading", domain.ErrInvalidState, id)
	}
	return j.ListID, nil
}

func (s *shareUC) ChangeAccess(ctx context.Context, memberID string, access model.AccessType) error {
	if memberID == "" {
		return fmt.Errorf("%w: member id is required", domain.ErrInvalidArgument)
	}
	if _, err := model.ParseAccessType(string(access)); err != nil {
		return err
	}
	return s.sharing.ChangeAccess(ctx, memberID, access)
}

func (s *shareUC) RemoveMember(ctx context.Context, memberID string) error {
	if memberID == "" {
		return fmt.Errorf("%w: member id is required", domain.ErrInvalidArgument)
	}
	return s.sharing.RemoveMember(ctx, memberID)
}

func (s *shareUC) Members(ctx context.Context) ([]model.Member, error) {
	return s.sharing.Members(ctx)
}
