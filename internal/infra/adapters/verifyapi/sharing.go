package verifyapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
	"verify-controller/internal/infra/httpclient"
)

var (
	_ adapter.SharingService = (*Sharing)(nil)
	_ adapter.ActivityLog    = (*Sharing)(nil)
)

// Sharing covers share grants and the activity log; both are account-scoped
// reads and writes on the protected surface.
type Sharing struct {
	c *httpclient.Client
}

func NewSharing(c *httpclient.Client) *Sharing { return &Sharing{c: c} }

func (s *Sharing) FindMemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	var out *memberDTO
	if err := s.c.SendJSON(ctx, http.MethodPost, pathUserByEmail, nil, map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	if out == nil || out.ID == "" {
		return nil, domain.ErrNotFound
	}
	m := out.toModel()
	return &m, nil
}

func (s *Sharing) Share(ctx context.Context, memberID string, listIDs []string, access model.AccessType) error {
	body := map[string]any{
		"memberId":     memberID,
		"emailListIds": listIDs,
		"accessType":   access,
	}
	return s.c.SendJSON(ctx, http.MethodPost, pathShare, nil, body, nil)
}

func (s *Sharing) ChangeAccess(ctx context.Context, memberID string, access model.AccessType) error {
	body := map[string]any{"memberId": memberID, "accessType": access}
	return s.c.SendJSON(ctx, http.MethodPost, pathChangeAccess, nil, body, nil)
}

func (s *Sharing) RemoveMember(ctx context.Context, memberID string) error {
	return s.c.SendJSON(ctx, http.MethodDelete, pathRemoveMember, nil, map[string]string{"memberId": memberID}, nil)
}

// Members returns the accounts this user shared lists with.
func (s *Sharing) Members(ctx context.Context) ([]model.Member, error) {
	var out []memberStatsDTO
	if err := s.c.GetJSON(ctx, pathMemberStats, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	members := make([]model.Member, 0, len(out[0].MembersList))
	for _, row := range out[0].MembersList {
		m := row.MemberDetails.toModel()
		if a, err := model.ParseAccessType(row.AccessType); err == nil {
			m.AccessType = a
		}
		m.ListCount = row.ListCount
		members = append(members, m)
	}
	return members, nil
}

func (s *Sharing) ActivityLogs(ctx context.Context, page, limit int) ([]model.ActivityLog, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Data []activityDTO `json:"data"`
	}
	// the log endpoint nests its rows one level deeper than the list endpoint
	if err := s.c.GetJSON(ctx, pathActivityLogs, q, &out); err != nil {
		return nil, err
	}
	logs := make([]model.ActivityLog, 0, len(out.Data))
	for _, a := range out.Data {
		logs = append(logs, a.toModel())
	}
	return logs, nil
}
