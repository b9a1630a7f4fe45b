//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
	"verify-controller/internal/usecase"
)

// -----------------------------
// Utilities
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func ptr[T any](v T) *T { return &v }

func statusPtr(s model.JobStatus) *model.JobStatus { return &s }

// =============================
// Adapters
// =============================

// ---- MockVerifier ----

type MockVerifier struct {
	mu sync.Mutex

	UploadCalls   int32
	StartCalls    int32
	StatusCalls   int32
	DeleteCalls   int32
	DownloadCalls int32
	ListCalls     int32
	SingleCalls   int32

	Started []adapter.JobKey
	Deleted []adapter.JobKey

	UploadFunc   func(ctx context.Context, name string, file io.Reader) (adapter.RemoteList, error)
	StartFunc    func(ctx context.Context, key adapter.JobKey) (model.StatusUpdate, error)
	StatusFunc   func(ctx context.Context, key adapter.JobKey) (model.StatusUpdate, error)
	DeleteFunc   func(ctx context.Context, key adapter.JobKey) error
	DownloadFunc func(ctx context.Context, key adapter.JobKey, filter model.ReportFilter, w io.Writer) error
	ListFunc     func(ctx context.Context, q adapter.ListQuery) (adapter.ListPage, error)
	SingleFunc   func(ctx context.Context, email string) (string, error)
}

var _ adapter.VerificationService = (*MockVerifier)(nil)

func (m *MockVerifier) Upload(ctx context.Context, name string, file io.Reader) (adapter.RemoteList, error) {
	atomic.AddInt32(&m.UploadCalls, 1)
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, name, file)
	}
	return adapter.RemoteList{
		ListID: "list-1",
		Update: model.StatusUpdate{
			Status:       statusPtr(model.JobStatusUnverified),
			RemoteJobRef: ptr("ref-1"),
			RecordCount:  ptr(10),
		},
	}, nil
}

func (m *MockVerifier) Start(ctx context.Context, key adapter.JobKey) (model.StatusUpdate, error) {
	atomic.AddInt32(&m.StartCalls, 1)
	m.mu.Lock()
	m.Started = append(m.Started, key)
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(ctx, key)
	}
	return model.StatusUpdate{Status: statusPtr(model.JobStatusProcessing)}, nil
}

func (m *MockVerifier) Status(ctx context.Context, key adapter.JobKey) (model.StatusUpdate, error) {
	atomic.AddInt32(&m.StatusCalls, 1)
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, key)
	}
	return model.StatusUpdate{}, nil
}

func (m *MockVerifier) Delete(ctx context.Context, key adapter.JobKey) error {
	atomic.AddInt32(&m.DeleteCalls, 1)
	m.mu.Lock()
	m.Deleted = append(m.Deleted, key)
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

func (m *MockVerifier) Download(ctx context.Context, key adapter.JobKey, filter model.ReportFilter, w io.Writer) error {
	atomic.AddInt32(&m.DownloadCalls, 1)
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, key, filter, w)
	}
	_, err := io.WriteString(w, "email,result\na@x.io,deliverable\n")
	return err
}

func (m *MockVerifier) List(ctx context.Context, q adapter.ListQuery) (adapter.ListPage, error) {
	atomic.AddInt32(&m.ListCalls, 1)
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	return adapter.ListPage{}, nil
}

func (m *MockVerifier) VerifySingle(ctx context.Context, email string) (string, error) {
	atomic.AddInt32(&m.SingleCalls, 1)
	if m.SingleFunc != nil {
		return m.SingleFunc(ctx, email)
	}
	return "deliverable", nil
}

// ---- MockLedger ----

type MockLedger struct {
	Calls int32

	FetchBalanceFunc func(ctx context.Context) (model.CreditBalance, error)
}

var _ adapter.CreditLedger = (*MockLedger)(nil)

func (m *MockLedger) FetchBalance(ctx context.Context) (model.CreditBalance, error) {
	atomic.AddInt32(&m.Calls, 1)
	if m.FetchBalanceFunc != nil {
		return m.FetchBalanceFunc(ctx)
	}
	return model.CreditBalance{Remaining: 100, Consumed: 5, FetchedAt: time.Now()}, nil
}

// ---- MockIdentity ----

type MockIdentity struct {
	SignInCalls  int32
	SignOutCalls int32
	IssueCalls   int32

	SignInFunc  func(ctx context.Context, email, pw string) error
	SignUpFunc  func(ctx context.Context, req model.SignUpRequest) error
	SignOutFunc func(ctx context.Context) error
	IssueFunc   func(ctx context.Context) (model.Credential, error)
	RotateFunc  func(ctx context.Context) (model.Credential, error)
	Expiry      time.Time
}

var _ adapter.IdentityProvider = (*MockIdentity)(nil)

func (m *MockIdentity) SignIn(ctx context.Context, email, pw string) error {
	atomic.AddInt32(&m.SignInCalls, 1)
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, pw)
	}
	return nil
}

func (m *MockIdentity) SignUp(ctx context.Context, req model.SignUpRequest) error {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, req)
	}
	return nil
}

func (m *MockIdentity) SignOut(ctx context.Context) error {
	atomic.AddInt32(&m.SignOutCalls, 1)
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	return nil
}

func (m *MockIdentity) IssueCredentials(ctx context.Context) (model.Credential, error) {
	atomic.AddInt32(&m.IssueCalls, 1)
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx)
	}
	return model.Credential{APIKey: "key-1", APISecret: "secret-1"}, nil
}

func (m *MockIdentity) RotateCredentials(ctx context.Context) (model.Credential, error) {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx)
	}
	return model.Credential{APIKey: "key-2", APISecret: "secret-2"}, nil
}

func (m *MockIdentity) SessionExpiry() (time.Time, bool) {
	return m.Expiry, !m.Expiry.IsZero()
}

func (m *MockIdentity) Timezone(ctx context.Context) (string, error) {
	return "Europe/Berlin", nil
}

// ---- MockSharing ----

type MockSharing struct {
	mu     sync.Mutex
	Shared map[string][]string
	Access map[string]model.AccessType

	Accounts map[string]model.Member // keyed by email
}

var _ adapter.SharingService = (*MockSharing)(nil)

func NewMockSharing(members ...model.Member) *MockSharing {
	m := &MockSharing{
		Shared:   make(map[string][]string),
		Access:   make(map[string]model.AccessType),
		Accounts: make(map[string]model.Member),
	}
	for _, mb := range members {
		m.Accounts[mb.Email] = mb
	}
	return m
}

func (m *MockSharing) FindMemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.Accounts[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &mb, nil
}

func (m *MockSharing) Share(ctx context.Context, memberID string, listIDs []string, access model.AccessType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Shared[memberID] = append(m.Shared[memberID], listIDs...)
	m.Access[memberID] = access
	return nil
}

func (m *MockSharing) ChangeAccess(ctx context.Context, memberID string, access model.AccessType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Access[memberID]; !ok {
		return domain.ErrNotFound
	}
	m.Access[memberID] = access
	return nil
}

func (m *MockSharing) RemoveMember(ctx context.Context, memberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Shared, memberID)
	delete(m.Access, memberID)
	return nil
}

func (m *MockSharing) Members(ctx context.Context) ([]model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Member
	for _, mb := range m.Accounts {
		if a, ok := m.Access[mb.ID]; ok {
			mb.AccessType = a
			out = append(out, mb)
		}
	}
	return out, nil
}

// ---- MockActivity ----

type MockActivity struct {
	GotPage, GotLimit int
}

var _ adapter.ActivityLog = (*MockActivity)(nil)

func (m *MockActivity) ActivityLogs(ctx context.Context, page, limit int) ([]model.ActivityLog, error) {
	m.GotPage, m.GotLimit = page, limit
	return []model.ActivityLog{{}}, nil
}

// =============================
// Stores
// =============================

// ---- MockCredentialStore ----

type MockCredentialStore struct {
	mu   sync.Mutex
	cred *model.Credential
	p    model.Persistence

	ClearErr error
}

var _ usecase.CredentialStore = (*MockCredentialStore)(nil)

func (m *MockCredentialStore) Set(ctx context.Context, c model.Credential, p model.Persistence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred, m.p = &c, p
	return nil
}

func (m *MockCredentialStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred, m.p = nil, ""
	return m.ClearErr
}

func (m *MockCredentialStore) Get(ctx context.Context) (model.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return model.Credential{}, false
	}
	return *m.cred, true
}

func (m *MockCredentialStore) Has(ctx context.Context) bool {
	_, ok := m.Get(ctx)
	return ok
}

func (m *MockCredentialStore) Persistence(ctx context.Context) model.Persistence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p
}
