package adapter

import (
	"context"
	"time"

	"verify-controller/internal/domain/model"
)

// IdentityProvider establishes browser-style sessions and exchanges them for
// derived API credentials.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, req model.SignUpRequest) error
	SignOut(ctx context.Context) error
	// IssueCredentials exchanges the current session for a derived key pair.
	IssueCredentials(ctx context.Context) (model.Credential, error)
	// RotateCredentials asks the server for a fresh pair, invalidating the old one.
	RotateCredentials(ctx context.Context) (model.Credential, error)
	// SessionExpiry returns when the current session ends, if known.
	SessionExpiry() (time.Time, bool)
	Timezone(ctx context.Context) (string, error)
}
