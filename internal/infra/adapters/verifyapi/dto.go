package verifyapi

import (
	"time"

	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
)

// listDTO is one email-list record as the service serializes it.
type listDTO struct {
	ID              string  `json:"_id"`
	BulkVerifyID    string  `json:"bulk_verify_id"`
	Name            string  `json:"name"`
	TotalEmails     *int    `json:"total_emails"`
	Status          string  `json:"status"`
	CreditConsumed  *int64  `json:"credit_consumed"`
	RequiresCredits *bool   `json:"requiresCredits"`
	CreatedAt       *string `json:"createdAt"`
	Date            *string `json:"date"`
}

// toUpdate maps a record onto a partial update. An unknown status string is
// dropped rather than guessed at.
func (d listDTO) toUpdate() model.StatusUpdate {
	var u model.StatusUpdate
	if st, err := model.ParseJobStatus(d.Status); err == nil {
		u.Status = &st
	}
	u.CreditsConsumed = d.CreditConsumed
	u.RecordCount = d.TotalEmails
	u.RequiresCredits = d.RequiresCredits
	if d.BulkVerifyID != "" {
		ref := d.BulkVerifyID
		u.RemoteJobRef = &ref
	}
	if d.Name != "" {
		name := d.Name
		u.Name = &name
	}
	for _, s := range []*string{d.CreatedAt, d.Date} {
		if s == nil {
			continue
		}
		if t, err := time.Parse(time.RFC3339, *s); err == nil {
			u.CreatedAt = &t
			break
		}
	}
	return u
}

func (d listDTO) toRemote() adapter.RemoteList {
	return adapter.RemoteList{ListID: d.ID, Update: d.toUpdate()}
}

// statusDTO accepts both shapes the status and start endpoints return:
// top-level fields, an embedded emailList record, or both.
type statusDTO struct {
	Status          string   `json:"status"`
	CreditsConsumed *int64   `json:"creditsConsumed"`
	EmailList       *listDTO `json:"emailList"`
	Bouncify        *struct {
		Status string `json:"status"`
	} `json:"bouncify"`
}

func (d statusDTO) toUpdate() model.StatusUpdate {
	var u model.StatusUpdate
	if d.EmailList != nil {
		u = d.EmailList.toUpdate()
	}
	if u.Status == nil {
		if st, err := model.ParseJobStatus(d.Status); err == nil {
			u.Status = &st
		}
	}
	if u.CreditsConsumed == nil {
		u.CreditsConsumed = d.CreditsConsumed
	}
	if d.Bouncify != nil && d.Bouncify.Status != "" {
		ps := d.Bouncify.Status
		u.ProviderStatus = &ps
	}
	return u
}

type paginationDTO struct {
	Pages      int `json:"pages"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
}

type listPageDTO struct {
	Items      []listDTO     `json:"items"`
	Pagination paginationDTO `json:"pagination"`
}

type creditDTO struct {
	Remaining  int64 `json:"credits_remaining"`
	Consumed   int64 `json:"credits_consumed"`
	TotalLists int64 `json:"total_count_of_email_lists"`
}

type credentialDTO struct {
	APIKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
}

type memberDTO struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (m memberDTO) toModel() model.Member {
	name := m.FirstName
	if m.LastName != "" {
		if name != "" {
			name += " "
		}
		name += m.LastName
	}
	return model.Member{ID: m.ID, Email: m.Email, Name: name}
}

type memberStatsDTO struct {
	MembersList []struct {
		MemberDetails memberDTO `json:"memberDetails"`
		AccessType    string    `json:"accessType"`
		ListCount     int       `json:"emailListCount"`
	} `json:"membersList"`
}

type activityDTO struct {
	ID         string `json:"_id"`
	Action     string `json:"action"`
	ModuleName string `json:"module_name"`
	Source     string `json:"source"`
	Date       string `json:"date"`
}

func (a activityDTO) toModel() model.ActivityLog {
	desc := a.ModuleName
	if a.Source != "" {
		if desc != "" {
			desc += " via "
		}
		desc += a.Source
	}
	out := model.ActivityLog{ID: a.ID, Action: a.Action, Description: desc}
	if t, err := time.Parse(time.RFC3339, a.Date); err == nil {
		out.CreatedAt = t
	}
	return out
}
