package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a customer balance. Balances use exact decimal arithmetic;
// all mutations go through the store so that concurrent deltas on the same
// account are never lost.
type Account struct {
	ID        string          `json:"id"`
	Owner     string          `json:"owner"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BalanceUpdate is a single signed balance adjustment request.
type BalanceUpdate struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}
