package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/1dlvb/async-bank-app/internal/model"
)

// AccountStore is the persistence boundary for accounts. ApplyDelta and
// ApplyTransfer are the only balance mutation paths: each implementation
// must serialize read-modify-write on a single account so that concurrent
// deltas are never lost, and must apply the debit/credit pair of a transfer
// atomically (both visible, or neither).
type AccountStore interface {
	Get(ctx context.Context, id string) (*model.Account, error)
	Create(ctx context.Context, account *model.Account) (*model.Account, error)
	ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (*model.Account, error)
	ApplyTransfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) error
}

// DepositStore persists deposits.
type DepositStore interface {
	GetDeposit(ctx context.Context, id string) (*model.Deposit, error)
	CreateDeposit(ctx context.Context, deposit *model.Deposit) (*model.Deposit, error)
}

// TransactionLog is the write-once record of completed transfers.
type TransactionLog interface {
	Append(ctx context.Context, tx *model.Transaction) (*model.Transaction, error)
}

// Store is the full persistence surface the services depend on.
type Store interface {
	AccountStore
	DepositStore
	TransactionLog
}
