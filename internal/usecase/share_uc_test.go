//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/usecase"
)

func TestShareUseCase_Share(t *testing.T) {
	ctx := context.Background()
	bob := model.Member{ID: "m-1", Email: "bob@x.io", Name: "Bob"}

	t.Run("should map job ids to list ids and pass list ids through", func(t *testing.T) {
		// --- Arrange ---
		f := newJobFixture(0)
		j := f.uploaded(t)
		sharing := NewMockSharing(bob)
		uc := usecase.NewShareUseCase(sharing, f.cache, newTestLogger())

		// --- Act ---
		m, err := uc.Share(ctx, "bob@x.io", []string{j.ID, "list-raw"}, model.AccessRead)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if m.ID != "m-1" || m.AccessType != model.AccessRead {
			t.Errorf("unexpected member %+v", m)
		}
		if diff := cmp.Diff([]string{"list-1", "list-raw"}, sharing.Shared["m-1"]); diff != "" {
			t.Errorf("shared lists mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should refuse jobs still uploading", func(t *testing.T) {
		f := newJobFixture(0)
		placeholder, _ := model.NewUploadingJob("j-up", "x.csv")
		_ = f.cache.Put(ctx, placeholder)
		uc := usecase.NewShareUseCase(NewMockSharing(bob), f.cache, newTestLogger())

		_, err := uc.Share(ctx, "bob@x.io", []string{"j-up"}, model.AccessWrite)
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("should report unknown members", func(t *testing.T) {
		f := newJobFixture(0)
		uc := usecase.NewShareUseCase(NewMockSharing(), f.cache, newTestLogger())

		_, err := uc.Share(ctx, "nobody@x.io", []string{"list-1"}, model.AccessRead)
		if !errors.Is(err, domain.ErrNotFound) || !strings.Contains(err.Error(), "nobody@x.io") {
			t.Errorf("expected ErrNotFound naming the email, got %v", err)
		}
	})

	t.Run("should reject unknown access types", func(t *testing.T) {
		f := newJobFixture(0)
		uc := usecase.NewShareUseCase(NewMockSharing(bob), f.cache, newTestLogger())

		_, err := uc.Share(ctx, "bob@x.io", []string{"list-1"}, "admin")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestShareUseCase_Members(t *testing.T) {
	ctx := context.Background()
	f := newJobFixture(0)
	sharing := NewMockSharing(model.Member{ID: "m-1", Email: "bob@x.io"})
	uc := usecase.NewShareUseCase(sharing, f.cache, newTestLogger())

	if _, err := uc.Share(ctx, "bob@x.io", []string{"list-1"}, model.AccessRead); err != nil {
		t.Fatal(err)
	}
	if err := uc.ChangeAccess(ctx, "m-1", model.AccessRead.Toggle()); err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	members, _ := uc.Members(ctx)
	if len(members) != 1 || members[0].AccessType != model.AccessWrite {
		t.Errorf("expected bob with write access, got %+v", members)
	}

	if err := uc.RemoveMember(ctx, "m-1"); err != nil {
		t.Fatal(err)
	}
	members, _ = uc.Members(ctx)
	if len(members) != 0 {
		t.Errorf("expected no members, got %+v", members)
	}
	if err := uc.RemoveMember(ctx, ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestActivityUseCase_List(t *testing.T) {
	logs := &MockActivity{}
	uc := usecase.NewActivityUseCase(logs)

	if _, err := uc.List(context.Background(), 0, 0); err != nil {
		t.Fatal(err)
	}
	if logs.GotPage != 1 || logs.GotLimit != 20 {
		t.Errorf("expected defaults 1/20, got %d/%d", logs.GotPage, logs.GotLimit)
	}
	_, _ = uc.List(context.Background(), 3, 50)
	if logs.GotPage != 3 || logs.GotLimit != 50 {
		t.Errorf("expected 3/50, got %d/%d", logs.GotPage, logs.GotLimit)
	}
}

func TestSingleVerifyUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("should verify and refresh the ledger", func(t *testing.T) {
		svc := &MockVerifier{}
		ledger := &MockLedger{}
		uc := usecase.NewSingleVerifyUseCase(svc, usecase.NewCreditUseCase(ledger, newTestLogger()), newTestLogger())

		got, err := uc.VerifySingle(ctx, "a@x.io")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got != "deliverable" || ledger.Calls != 1 {
			t.Errorf("unexpected result %q / %d ledger calls", got, ledger.Calls)
		}
	})

	t.Run("should reject malformed addresses locally", func(t *testing.T) {
		svc := &MockVerifier{}
		uc := usecase.NewSingleVerifyUseCase(svc, nil, newTestLogger())

		if _, err := uc.VerifySingle(ctx, "not-an-email"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if svc.SingleCalls != 0 {
			t.Error("expected no network call")
		}
	})
}
