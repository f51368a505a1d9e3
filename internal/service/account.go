package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/model"
	"github.com/1dlvb/async-bank-app/internal/store"
)

// AccountService owns account creation and balance mutation. UpdateBalance
// is the only way a single account balance changes; it delegates to the
// store's atomic delta so concurrent updates on one account serialize there.
type AccountService struct {
	accounts store.AccountStore
	workers  int
	log      *zap.Logger
}

// NewAccountService creates an account service. workers bounds the
// concurrency of batch balance updates.
func NewAccountService(accounts store.AccountStore, workers int, log *zap.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		workers:  workers,
		log:      log,
	}
}

// Create opens a new account with the given owner and starting balance.
func (s *AccountService) Create(ctx context.Context, owner string, balance decimal.Decimal) (*model.Account, error) {
	account := &model.Account{
		ID:      uuid.NewString(),
		Owner:   owner,
		Balance: balance,
	}
	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		return nil, err
	}
	s.log.Info("account created",
		zap.String("account_id", created.ID),
		zap.String("owner", created.Owner))
	return created, nil
}

// FindByID returns the account or model.ErrAccountNotFound.
func (s *AccountService) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return s.accounts.Get(ctx, id)
}

// UpdateBalance applies a signed delta to one account. Sufficiency is not
// checked here; debit validation belongs to the caller.
func (s *AccountService) UpdateBalance(ctx context.Context, accountID string, delta decimal.Decimal) (*model.Account, error) {
	account, err := s.accounts.ApplyDelta(ctx, accountID, delta)
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	return account, nil
}

// UpdateBalances applies the updates one by one in input order. A failed
// item does not stop the rest; failures come back in a BatchError.
func (s *AccountService) UpdateBalances(ctx context.Context, updates []model.BalanceUpdate) error {
	var batch model.BatchError
	for i, update := range updates {
		if _, err := s.UpdateBalance(ctx, update.AccountID, update.Amount); err != nil {
			batch.Append(i, err)
		}
	}
	return batch.ErrOrNil()
}

// UpdateBalancesConcurrent applies the updates on the worker pool. All items
// are attempted; the result is the same as the sequential form for the same
// input, independent of scheduling.
func (s *AccountService) UpdateBalancesConcurrent(ctx context.Context, updates []model.BalanceUpdate) error {
	return runPool(ctx, s.workers, len(updates), func(ctx context.Context, i int) error {
		_, err := s.UpdateBalance(ctx, updates[i].AccountID, updates[i].Amount)
		return err
	})
}
