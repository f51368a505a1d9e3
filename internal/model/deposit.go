package model

import "time"

// Deposit is an interest-bearing deposit attached to an account. Rate is a
// yearly percentage. Deposit balances are projections only and never flow
// back into account balances, so plain float math is fine here.
type Deposit struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Balance   float64   `json:"balance"`
	Rate      float64   `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
