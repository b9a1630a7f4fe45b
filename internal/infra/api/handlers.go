package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/infra/logging"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type shareRequest struct {
	Email  string   `json:"email"`
	Lists  []string `json:"lists"`
	Access string   `json:"access"`
}

type verifyRequest struct {
	Email string `json:"email"`
}

type sessionResponse struct {
	model.SessionStatus
	Credits *model.CreditBalance `json:"credits,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP codes.
func statusFor(err error) (int, string) {
	var re *domain.RemoteError
	var te *domain.TransportError
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "insufficient_credits"
	case errors.Is(err, domain.ErrOperationInProgress):
		return http.StatusConflict, "operation_in_progress"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrNotCredentialed):
		return http.StatusUnauthorized, "not_credentialed"
	case errors.As(err, &re):
		return http.StatusBadGateway, "remote_error"
	case errors.As(err, &te), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "transport_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, tag := statusFor(err)
	l := logging.With(r.Context(), s.log)
	if code >= 500 {
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		l.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}
	writeJSON(w, code, errorBody{Error: err.Error(), Code: tag})
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: missing body", domain.ErrInvalidArgument)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body", domain.ErrInvalidArgument)
	}
	return nil
}

func jobFilter(r *http.Request) (model.JobFilter, error) {
	st := r.URL.Query().Get("status")
	if st == "" {
		return model.JobFilter{}, nil
	}
	parsed, err := model.ParseJobStatus(st)
	if err != nil {
		return model.JobFilter{}, err
	}
	return model.JobFilter{Status: parsed}, nil
}

// ---- session ----

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	st, bal := s.ctl.Status(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{SessionStatus: st, Credits: bal})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ctl.SignIn(r.Context(), req.Email, req.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	s.handleSession(w, r)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.SignOut(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	b, err := s.ctl.Balance(r.Context(), refresh)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ---- jobs ----

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	f, err := jobFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jobs, err := s.ctl.ListJobs(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": jobs})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f, err := jobFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jobs, err := s.ctl.RefreshJobs(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": jobs})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: multipart field \"file\" is required", domain.ErrInvalidArgument))
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = filepath.Base(hdr.Filename)
	}
	j, err := s.ctl.Upload(r.Context(), name, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.ctl.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	j, err := s.ctl.StartVerification(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	j, err := s.ctl.CheckStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	filter, err := model.ParseReportFilter(q.Get("filter"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	format, err := model.ParseReportFormat(q.Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Buffer so that a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := s.ctl.Report(r.Context(), id, filter, format, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	ctype := "text/csv"
	if format == model.ReportXLSX {
		ctype = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%s.%s", id, filter, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ---- sharing, activity, single ----

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	ms, err := s.ctl.Members(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": ms})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	access, err := model.ParseAccessType(req.Access)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.ctl.Share(r.Context(), req.Email, req.Lists, access)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	logs, err := s.ctl.ActivityLogs(r.Context(), page, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": logs})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.ctl.VerifySingle(r.Context(), req.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": req.Email, "result": res})
}
