package verifyapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
	"verify-controller/internal/infra/httpclient"
)

var _ adapter.IdentityProvider = (*Identity)(nil)

// Identity talks to the session surface. The session itself lives in the
// HTTP client's cookie jar.
type Identity struct {
	c *httpclient.Client
}

func NewIdentity(c *httpclient.Client) *Identity { return &Identity{c: c} }

func (i *Identity) SignIn(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return i.c.SendJSON(ctx, http.MethodPost, pathSignIn, nil, body, nil)
}

func (i *Identity) SignUp(ctx context.Context, req model.SignUpRequest) error {
	body := map[string]string{
		"email":      req.Email,
		"password":   req.Password,
		"first_name": req.FirstName,
		"last_name":  req.LastName,
	}
	return i.c.SendJSON(ctx, http.MethodPost, pathSignUp, nil, body, nil)
}

func (i *Identity) SignOut(ctx context.Context) error {
	return i.c.GetJSON(ctx, pathSignOut, nil, nil)
}

func (i *Identity) IssueCredentials(ctx context.Context) (model.Credential, error) {
	return i.credentials(ctx, http.MethodPost)
}

func (i *Identity) RotateCredentials(ctx context.Context) (model.Credential, error) {
	return i.credentials(ctx, http.MethodPut)
}

func (i *Identity) credentials(ctx context.Context, method string) (model.Credential, error) {
	var out credentialDTO
	if err := i.c.SendJSON(ctx, method, pathCredentials, nil, map[string]string{}, &out); err != nil {
		return model.Credential{}, err
	}
	cred := model.Credential{APIKey: out.APIKey, APISecret: out.SecretKey}
	if !cred.Valid() {
		return model.Credential{}, fmt.Errorf("%w: credential response missing apiKey or secretKey", domain.ErrNotFound)
	}
	return cred, nil
}

// SessionExpiry reads exp from the first session cookie that carries a JWT.
// The token is not verified: the server does that, this only drives display.
func (i *Identity) SessionExpiry() (time.Time, bool) {
	p := jwt.NewParser()
	for _, ck := range i.c.Cookies() {
		if strings.Count(ck.Value, ".") != 2 {
			continue
		}
		tok, _, err := p.ParseUnverified(ck.Value, jwt.MapClaims{})
		if err != nil {
			continue
		}
		exp, err := tok.Claims.GetExpirationTime()
		if err != nil || exp == nil {
			continue
		}
		return exp.Time, true
	}
	return time.Time{}, false
}

func (i *Identity) Timezone(ctx context.Context) (string, error) {
	var tz string
	if err := i.c.GetJSON(ctx, pathTimezone, nil, &tz); err != nil {
		return "", err
	}
	return tz, nil
}
