package verifyapi

import (
	"context"
	"time"

	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
	"verify-controller/internal/infra/httpclient"
)

var _ adapter.CreditLedger = (*Ledger)(nil)

type Ledger struct {
	c *httpclient.Client
}

func NewLedger(c *httpclient.Client) *Ledger { return &Ledger{c: c} }

func (l *Ledger) FetchBalance(ctx context.Context) (model.CreditBalance, error) {
	var out creditDTO
	if err := l.c.GetJSON(ctx, pathCredits, nil, &out); err != nil {
		return model.CreditBalance{}, err
	}
	return model.CreditBalance{
		Remaining:  max(out.Remaining, 0),
		Consumed:   max(out.Consumed, 0),
		TotalLists: out.TotalLists,
		FetchedAt:  time.Now(),
	}, nil
}
