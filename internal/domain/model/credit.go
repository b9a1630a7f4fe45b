package model

import "time"

// CreditBalance is the last server-reported quota. The client never computes
// it; Pending only flags that a credit-affecting call is in flight.
type CreditBalance struct {
	Remaining  int64     `json:"remaining"`
	Consumed   int64     `json:"consumed"`
	TotalLists int64     `json:"total_lists"`
	FetchedAt  time.Time `json:"fetched_at"`
	Pending    bool      `json:"pending"`
}
