//go:build !integration

package httpclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"verify-controller/internal/config"
	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/infra/credstore"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// recorder remembers the Authorization header of the last call per path.
type recorder struct {
	mu   sync.Mutex
	auth map[string]string
}

func (r *recorder) seen(path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.auth[path]
}

func newTestServer(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{auth: map[string]string{}}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec.mu.Lock()
			rec.auth[req.URL.Path] = req.Header.Get("Authorization")
			rec.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/v1/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","data":{"value":42}}`)
	})
	r.Get("/auth/verify-session", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","data":{}}`)
	})
	r.Get("/api/v1/forbidden", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"status":"error","message":"read only grant"}`)
	})
	r.Post("/api/v1/coded", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status":"error","code":"permission_denied","message":"nope"}`)
	})
	r.Get("/api/v1/plain", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "upstream exploded")
	})
	r.Get("/api/v1/soft-fail", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"failed","message":"list not ready"}`)
	})
	r.Post("/api/v1/upload", func(w http.ResponseWriter, req *http.Request) {
		f, hdr, err := req.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		_, _ = io.WriteString(w, `{"status":"success","data":{"name":"`+req.FormValue("name")+`","file":"`+hdr.Filename+`","size":`+strconv.Itoa(len(b))+`}}`)
	})
	r.Post("/api/v1/download", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "email,result\na@x.io,deliverable\n")
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, rec
}

func newClient(t *testing.T, base string, store CredentialSource) *Client {
	t.Helper()
	c, err := New(config.APIConfig{BaseURL: base, ProtectedPrefix: "/api/v1/"}, store, newTestLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func basic(key, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(key+":"+secret))
}

func TestClient_Authentication(t *testing.T) {
	ctx := context.Background()
	srv, rec := newTestServer(t)
	store := credstore.New(credstore.NewMemoryBackend(), credstore.NewMemoryBackend(), newTestLogger())
	c := newClient(t, srv.URL, store)
	pair := model.Credential{APIKey: "key", APISecret: "secret"}

	t.Run("should sign protected calls with the stored pair", func(t *testing.T) {
		_ = store.Set(ctx, pair, model.PersistNone)
		var out struct{ Value int }
		if err := c.GetJSON(ctx, "/api/v1/ping", nil, &out); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Value != 42 {
			t.Errorf("expected data.value 42, got %d", out.Value)
		}
		if got := rec.seen("/api/v1/ping"); got != basic("key", "secret") {
			t.Errorf("unexpected Authorization %q", got)
		}
	})

	t.Run("should never sign the identity surface", func(t *testing.T) {
		if err := c.GetJSON(ctx, "/auth/verify-session", nil, nil); err != nil {
			t.Fatal(err)
		}
		if got := rec.seen("/auth/verify-session"); got != "" {
			t.Errorf("expected no Authorization on identity calls, got %q", got)
		}
	})

	t.Run("should not override a caller supplied Authorization", func(t *testing.T) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.URL("/api/v1/ping", nil), nil)
		req.Header.Set("Authorization", "Bearer explicit")
		resp, err := c.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if got := rec.seen("/api/v1/ping"); got != "Bearer explicit" {
			t.Errorf("expected explicit header kept, got %q", got)
		}
	})

	t.Run("should send protected calls unauthenticated after Clear", func(t *testing.T) {
		_ = store.Clear(ctx)
		if err := c.GetJSON(ctx, "/api/v1/ping", nil, nil); err != nil {
			t.Fatal(err)
		}
		if got := rec.seen("/api/v1/ping"); got != "" {
			t.Errorf("expected no Authorization after clear, got %q", got)
		}
	})
}

func TestClient_ErrorNormalization(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	c := newClient(t, srv.URL, nil)

	t.Run("403 classifies as permission denied", func(t *testing.T) {
		err := c.GetJSON(ctx, "/api/v1/forbidden", nil, nil)
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
		var re *domain.RemoteError
		if !errors.As(err, &re) || re.Message != "read only grant" {
			t.Errorf("expected server message, got %v", err)
		}
	})

	t.Run("permission_denied code classifies regardless of status", func(t *testing.T) {
		err := c.SendJSON(ctx, http.MethodPost, "/api/v1/coded", nil, map[string]string{}, nil)
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("raw body becomes the message", func(t *testing.T) {
		err := c.GetJSON(ctx, "/api/v1/plain", nil, nil)
		var re *domain.RemoteError
		if !errors.As(err, &re) {
			t.Fatalf("expected RemoteError, got %v", err)
		}
		if re.StatusCode != http.StatusInternalServerError || re.Message != "upstream exploded" {
			t.Errorf("unexpected remote error %+v", re)
		}
		if errors.Is(err, domain.ErrPermissionDenied) {
			t.Error("500 must not classify as permission denied")
		}
	})

	t.Run("non-success envelope on 2xx is a remote error", func(t *testing.T) {
		err := c.GetJSON(ctx, "/api/v1/soft-fail", nil, nil)
		var re *domain.RemoteError
		if !errors.As(err, &re) || re.Message != "list not ready" {
			t.Errorf("expected RemoteError with message, got %v", err)
		}
	})

	t.Run("connection failure is a transport error", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		dc := newClient(t, dead.URL, nil)
		err := dc.GetJSON(ctx, "/api/v1/ping", nil, nil)
		var te *domain.TransportError
		if !errors.As(err, &te) {
			t.Errorf("expected TransportError, got %v", err)
		}
	})
}

func TestClient_MultipartAndDownload(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	c := newClient(t, srv.URL, nil)

	var out struct {
		Name string `json:"name"`
		File string `json:"file"`
		Size int    `json:"size"`
	}
	err := c.SendMultipart(ctx, "/api/v1/upload", map[string]string{"name": "leads"}, "file", "leads.csv", strings.NewReader("a@x.io\nb@x.io\n"), &out)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Name != "leads" || out.File != "leads.csv" || out.Size != 14 {
		t.Errorf("unexpected upload echo %+v", out)
	}

	var buf bytes.Buffer
	if err := c.Download(ctx, http.MethodPost, "/api/v1/download", map[string]string{"jobId": "R1"}, &buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(buf.String(), "email,result") {
		t.Errorf("unexpected csv %q", buf.String())
	}
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	if _, err := New(config.APIConfig{BaseURL: "not a url"}, nil, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
