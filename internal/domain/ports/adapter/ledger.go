package adapter

import (
	"context"

	"verify-controller/internal/domain/model"
)

// CreditLedger reads the account's quota from the server.
type CreditLedger interface {
	FetchBalance(ctx context.Context) (model.CreditBalance, error)
}
