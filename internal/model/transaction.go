package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the append-only record of a completed transfer. Records are
// never updated or deleted once written.
type Transaction struct {
	ID            string          `json:"id"`
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransferRequest describes one requested funds movement between two
// accounts. It is ephemeral: requests are never persisted.
type TransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}
