package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
	"verify-controller/internal/infra/logging"
	"verify-controller/internal/infra/metrics"
)

// Compile-time check
var _ CreditUseCase = (*creditUC)(nil)

// CreditUseCase is the read-only view of the account's quota. The balance is
// always the server's; nothing here does arithmetic on it.
type CreditUseCase interface {
	// Refresh fetches the balance. Concurrent callers share one request.
	Refresh(ctx context.Context) (model.CreditBalance, error)
	// Current returns the last fetched balance; ok is false before the first
	// successful refresh. Pending is set while a credit-affecting call runs.
	Current() (balance model.CreditBalance, ok bool)
	// BeginPending marks a credit-affecting call in flight until end is called.
	BeginPending() (end func())
}

type creditUC struct {
	ledger adapter.CreditLedger
	group  singleflight.Group
	log    *zerolog.Logger

	mu      sync.RWMutex
	last    *model.CreditBalance
	pending int
}

func NewCreditUseCase(ledger adapter.CreditLedger, logger *zerolog.Logger) *creditUC {
	if logger == nil {
		logger = logging.Nop()
	}
	return &creditUC{ledger: ledger, log: logger}
}

func (c *creditUC) Refresh(ctx context.Context) (model.CreditBalance, error) {
	defer logging.TraceDuration(c.log, "CreditUC.Refresh")()

	v, err, shared := c.group.Do("balance", func() (interface{}, error) {
		b, err := c.ledger.FetchBalance(ctx)
		if err != nil {
			metrics.IncCreditRefresh("error")
			return nil, err
		}
		c.mu.Lock()
		c.last = &b
		c.mu.Unlock()
		metrics.IncCreditRefresh("ok")
		metrics.SetCredits(b.Remaining, b.Consumed)
		return b, nil
	})
	if err != nil {
		logging.With(ctx, c.log).Warn().Err(err).Msg("credit balance refresh failed")
		return model.CreditBalance{}, err
	}
	if shared {
		c.log.Trace().Msg("credit refresh coalesced")
	}
	b := v.(model.CreditBalance)
	b.Pending = c.isPending()
	return b, nil
}

func (c *creditUC) Current() (model.CreditBalance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return model.CreditBalance{Pending: c.pending > 0}, false
	}
	b := *c.last
	b.Pending = c.pending > 0
	return b, true
}

func (c *creditUC) BeginPending() func() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.pending--
			c.mu.Unlock()
		})
	}
}

func (c *creditUC) isPending() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending > 0
}
