// Package httpclient is the single outbound path to the verification service.
//
// Calls whose path contains the protected prefix are signed with HTTP Basic
// auth built from the derived API credential, unless the caller already set
// an Authorization header. Everything else (the identity surface) relies on
// the session cookies kept in the client's jar.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"verify-controller/internal/config"
	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/infra/logging"
	"verify-controller/internal/infra/metrics"
)

// CredentialSource is consulted on every protected call.
type CredentialSource interface {
	Get(ctx context.Context) (model.Credential, bool)
}

type Client struct {
	base      *url.URL
	prefix    string
	userAgent string
	creds     CredentialSource
	hc        *http.Client
	log       *zerolog.Logger
}

func New(cfg config.APIConfig, creds CredentialSource, log *zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: api.base_url %q", domain.ErrInvalidArgument, cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	prefix := cfg.ProtectedPrefix
	if prefix == "" {
		prefix = "/api/v1/"
	}
	return &Client{
		base:      base,
		prefix:    prefix,
		userAgent: cfg.UserAgent,
		creds:     creds,
		// Timeout 0 means a dispatched call is never aborted by the client.
		hc:  &http.Client{Jar: jar, Timeout: cfg.RequestTimeout},
		log: log,
	}, nil
}

// Cookies returns the session cookies the identity provider set for the base URL.
func (c *Client) Cookies() []*http.Cookie {
	return c.hc.Jar.Cookies(c.base)
}

// URL resolves path against the base URL.
func (c *Client) URL(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Protected reports whether a request path lies on the credential-signed surface.
func (c *Client) Protected(path string) bool {
	return strings.Contains(path, c.prefix)
}

// Do sends req and returns the response only for 2xx. Any other status is
// returned as *domain.RemoteError with the body consumed; a failure before a
// response arrives is *domain.TransportError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	l := logging.With(ctx, c.log)

	surface := "identity"
	authenticated := false
	if c.Protected(req.URL.Path) {
		surface = "protected"
		if req.Header.Get("Authorization") == "" && c.creds != nil {
			if cred, ok := c.creds.Get(ctx); ok {
				req.SetBasicAuth(cred.APIKey, cred.APISecret)
				authenticated = true
			}
		} else if req.Header.Get("Authorization") != "" {
			authenticated = true
		}
	}

	reqID := req.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = logging.TraceID(ctx)
	}
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveOutbound(req.Method, surface, authenticated, 0, elapsed.Seconds())
		l.Warn().Err(err).Str("request_id", reqID).Str("method", req.Method).Str("path", req.URL.Path).Msg("outbound request failed")
		return nil, &domain.TransportError{Op: req.Method, URL: req.URL.Path, Err: err}
	}
	metrics.ObserveOutbound(req.Method, surface, authenticated, resp.StatusCode, elapsed.Seconds())
	l.Debug().
		Str("request_id", reqID).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Bool("authenticated", authenticated).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("outbound request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, remoteError(resp.StatusCode, body)
	}
	return resp, nil
}

// envelope is the service's response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func remoteError(status int, body []byte) *domain.RemoteError {
	re := &domain.RemoteError{StatusCode: status, Payload: body}
	var env envelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		re.Code = env.Code
		re.Message = env.Message
		if re.Message == "" {
			re.Message = env.Error
		}
	}
	if re.Message == "" {
		re.Message = strings.TrimSpace(string(body))
		if len(re.Message) > 256 {
			re.Message = re.Message[:256]
		}
	}
	if re.Message == "" {
		re.Message = http.StatusText(status)
	}
	return re
}

// decode unwraps the envelope into out (the data member). A 2xx envelope whose
// status is not "success" is a RemoteError too.
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Op: "read", URL: resp.Request.URL.Path, Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", resp.Request.URL.Path, err)
	}
	if env.Status != "" && !strings.EqualFold(env.Status, "success") {
		re := remoteError(resp.StatusCode, body)
		if re.Code == "" {
			re.Code = env.Status
		}
		return re
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", resp.Request.URL.Path, err)
	}
	return nil
}

// GetJSON issues a GET and decodes the envelope's data into out.
func (c *Client) GetJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path, q), nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// SendJSON issues method with in as a JSON body (nil sends no body).
func (c *Client) SendJSON(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, q), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// SendMultipart streams fields plus one file part without buffering the file.
func (c *Client) SendMultipart(ctx context.Context, path string, fields map[string]string, fileField, fileName string, file io.Reader, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := func() error {
			for k, v := range fields {
				if err := mw.WriteField(k, v); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile(fileField, fileName)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, file); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path, nil), pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.Do(req)
	if err != nil {
		pr.Close()
		return err
	}
	return decode(resp, out)
}

// Download copies a raw (non-envelope) response body into w.
func (c *Client) Download(ctx context.Context, method, path string, in any, w io.Writer) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, nil), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "text/csv, application/octet-stream")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return &domain.TransportError{Op: "read", URL: path, Err: err}
	}
	return nil
}
