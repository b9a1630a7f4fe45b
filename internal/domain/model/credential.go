package model

import (
	"fmt"
	"strings"

	"verify-controller/internal/domain"
)

// Credential is the derived API key/secret pair used on the protected surface.
type Credential struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	APISecret string `json:"api_secret" yaml:"api_secret"`
}

func (c Credential) Valid() bool {
	return c.APIKey != "" && c.APISecret != ""
}

type Persistence string

const (
	PersistEphemeral Persistence = "ephemeral" // cleared when the session scope ends
	PersistDurable   Persistence = "durable"   // survives restarts
	PersistNone      Persistence = "none"      // process memory only
)

func ParsePersistence(s string) (Persistence, error) {
	switch p := Persistence(strings.ToLower(strings.TrimSpace(s))); p {
	case PersistEphemeral, PersistDurable, PersistNone:
		return p, nil
	case "":
		return PersistEphemeral, nil
	default:
		return "", fmt.Errorf("%w: unknown persistence %q", domain.ErrInvalidArgument, s)
	}
}
