package model

import (
	"fmt"
	"strings"

	"verify-controller/internal/domain"
)

type AccessType string

const (
	AccessRead  AccessType = "read"
	AccessWrite AccessType = "write"
)

func ParseAccessType(s string) (AccessType, error) {
	switch a := AccessType(strings.ToLower(strings.TrimSpace(s))); a {
	case AccessRead, AccessWrite:
		return a, nil
	default:
		return "", fmt.Errorf("%w: access type must be read or write, got %q", domain.ErrInvalidArgument, s)
	}
}

// Toggle flips read <-> write.
func (a AccessType) Toggle() AccessType {
	if a == AccessWrite {
		return AccessRead
	}
	return AccessWrite
}

// ShareGrant allows another account to see (read) or operate (write) a list.
type ShareGrant struct {
	MemberID   string     `json:"member_id"`
	ListID     string     `json:"list_id"`
	AccessType AccessType `json:"access_type"`
}

// Member is an account that can receive share grants.
type Member struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	AccessType AccessType `json:"access_type,omitempty"`
	ListCount  int        `json:"list_count,omitempty"`
}
