//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"verify-controller/internal/domain/model"
	"verify-controller/internal/usecase"
)

func TestCreditUseCase_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("should report nothing before the first fetch", func(t *testing.T) {
		uc := usecase.NewCreditUseCase(&MockLedger{}, newTestLogger())
		if _, ok := uc.Current(); ok {
			t.Error("expected no balance before refresh")
		}
	})

	t.Run("should keep the server's numbers verbatim", func(t *testing.T) {
		ledger := &MockLedger{FetchBalanceFunc: func(ctx context.Context) (model.CreditBalance, error) {
			return model.CreditBalance{Remaining: 1200, Consumed: 300, TotalLists: 4}, nil
		}}
		uc := usecase.NewCreditUseCase(ledger, newTestLogger())

		b, err := uc.Refresh(ctx)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		cur, ok := uc.Current()
		if !ok || cur.Remaining != 1200 || cur.Consumed != 300 || b.TotalLists != 4 {
			t.Errorf("unexpected balance: %+v / %+v", b, cur)
		}
	})

	t.Run("should keep the last balance when a refresh fails", func(t *testing.T) {
		var fail atomic.Bool
		ledger := &MockLedger{FetchBalanceFunc: func(ctx context.Context) (model.CreditBalance, error) {
			if fail.Load() {
				return model.CreditBalance{}, errors.New("boom")
			}
			return model.CreditBalance{Remaining: 7}, nil
		}}
		uc := usecase.NewCreditUseCase(ledger, newTestLogger())
		if _, err := uc.Refresh(ctx); err != nil {
			t.Fatal(err)
		}

		fail.Store(true)
		if _, err := uc.Refresh(ctx); err == nil {
			t.Fatal("expected refresh error")
		}
		if cur, ok := uc.Current(); !ok || cur.Remaining != 7 {
			t.Errorf("expected last good balance to survive, got %+v", cur)
		}
	})
}

func TestCreditUseCase_CoalescesConcurrentRefresh(t *testing.T) {
	// --- Arrange ---
	gate := make(chan struct{})
	ledger := &MockLedger{}
	ledger.FetchBalanceFunc = func(ctx context.Context) (model.CreditBalance, error) {
		<-gate
		return model.CreditBalance{Remaining: 42}, nil
	}
	uc := usecase.NewCreditUseCase(ledger, newTestLogger())

	// --- Act ---
	const callers = 8
	var wg sync.WaitGroup
	results := make([]int64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := uc.Refresh(context.Background())
			if err == nil {
				results[i] = b.Remaining
			}
		}(i)
	}
	for atomic.LoadInt32(&ledger.Calls) == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	// --- Assert ---
	if n := atomic.LoadInt32(&ledger.Calls); n != 1 {
		t.Errorf("expected one ledger call, got %d", n)
	}
	for i, r := range results {
		if r != 42 {
			t.Errorf("caller %d got %d", i, r)
		}
	}
}

func TestCreditUseCase_Pending(t *testing.T) {
	uc := usecase.NewCreditUseCase(&MockLedger{}, newTestLogger())

	end1 := uc.BeginPending()
	end2 := uc.BeginPending()
	if b, _ := uc.Current(); !b.Pending {
		t.Fatal("expected pending while calls are in flight")
	}
	end1()
	end1() // idempotent
	if b, _ := uc.Current(); !b.Pending {
		t.Fatal("expected pending until every call ends")
	}
	end2()
	if b, _ := uc.Current(); b.Pending {
		t.Error("expected pending to clear")
	}
}
