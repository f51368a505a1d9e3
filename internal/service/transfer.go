package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/model"
	"github.com/1dlvb/async-bank-app/internal/store"
)

// LockStrategy selects how SafeTransfer guards its critical section.
type LockStrategy string

const (
	// LockStrategyFixed uses two process-wide guards for every transfer.
	// Simple and conservative: all safe transfers serialize pairwise, even
	// ones touching disjoint accounts.
	LockStrategyFixed LockStrategy = "fixed"

	// LockStrategyOrdered keys guards by account id and acquires them in
	// lexicographic order, so only transfers sharing an account contend.
	LockStrategyOrdered LockStrategy = "ordered"
)

// TransferPublisher receives a notification for every recorded transfer.
type TransferPublisher interface {
	PublishTransfer(ctx context.Context, tx *model.Transaction) error
}

// TransferService moves funds between accounts. Transfer is the plain
// coordinator; SafeTransfer wraps the same movement in bounded-wait guards
// so overlapping concurrent transfers cannot deadlock or race the
// sufficiency check.
type TransferService struct {
	accounts  store.AccountStore
	txlog     store.TransactionLog
	publisher TransferPublisher
	log       *zap.Logger

	strategy LockStrategy
	lockWait time.Duration
	workers  int

	guardA *Guard
	guardB *Guard
	table  *guardTable
}

// TransferOptions configures a TransferService.
type TransferOptions struct {
	// Strategy defaults to LockStrategyFixed.
	Strategy LockStrategy
	// LockWait bounds guard acquisition; defaults to one second.
	LockWait time.Duration
	// Workers bounds batch concurrency; defaults to one worker per item.
	Workers int
	// Publisher, when set, receives every recorded transfer.
	Publisher TransferPublisher
}

// NewTransferService creates a transfer service. The two fixed guards are
// created here, once per process, and live as long as the service.
func NewTransferService(accounts store.AccountStore, txlog store.TransactionLog, log *zap.Logger, opts TransferOptions) *TransferService {
	if opts.Strategy == "" {
		opts.Strategy = LockStrategyFixed
	}
	if opts.LockWait <= 0 {
		opts.LockWait = time.Second
	}
	return &TransferService{
		accounts:  accounts,
		txlog:     txlog,
		publisher: opts.Publisher,
		log:       log,
		strategy:  opts.Strategy,
		lockWait:  opts.LockWait,
		workers:   opts.Workers,
		guardA:    NewGuard(),
		guardB:    NewGuard(),
		table:     newGuardTable(),
	}
}

// Transfer moves amount from one account to another and records it.
//
// Insufficient funds reject the transfer outright: no balance changes and no
// transaction record is written. No mutation happens before both accounts
// are confirmed to exist. The debit/credit pair itself is applied atomically
// by the store.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*model.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer of %s: %w", amount, model.ErrInvalidAmount)
	}

	from, err := s.accounts.Get(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.Get(ctx, toID); err != nil {
		return nil, err
	}

	if from.Balance.LessThan(amount) {
		return nil, fmt.Errorf("account %s holds %s, needs %s: %w",
			fromID, from.Balance, amount, model.ErrInsufficientFunds)
	}

	if err := s.accounts.ApplyTransfer(ctx, fromID, toID, amount); err != nil {
		return nil, err
	}

	record, err := s.txlog.Append(ctx, &model.Transaction{
		ID:            uuid.NewString(),
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
	})
	if err != nil {
		return nil, fmt.Errorf("transfer applied but not recorded: %w", err)
	}

	s.publish(ctx, record)
	return record, nil
}

// SafeTransfer performs the transfer under mutual exclusion with bounded
// waits. When a guard cannot be acquired within the bound, everything held
// so far is released and the call fails with model.ErrLockTimeout; the
// caller may retry with backoff. The sufficiency check runs inside the
// guards, so concurrent safe transfers cannot overdraw an account.
func (s *TransferService) SafeTransfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("transfer of %s: %w", amount, model.ErrInvalidAmount)
	}

	first, second := s.guardPair(fromID, toID)
	if !first.Acquire(ctx, s.lockWait) {
		return fmt.Errorf("transfer %s -> %s: %w", fromID, toID, model.ErrLockTimeout)
	}
	defer first.Release()

	if second != nil {
		if !second.Acquire(ctx, s.lockWait) {
			return fmt.Errorf("transfer %s -> %s: %w", fromID, toID, model.ErrLockTimeout)
		}
		defer second.Release()
	}

	from, err := s.accounts.Get(ctx, fromID)
	if err != nil {
		return err
	}
	if _, err := s.accounts.Get(ctx, toID); err != nil {
		return err
	}
	if from.Balance.LessThan(amount) {
		return fmt.Errorf("account %s holds %s, needs %s: %w",
			fromID, from.Balance, amount, model.ErrInsufficientFunds)
	}

	return s.accounts.ApplyTransfer(ctx, fromID, toID, amount)
}

// guardPair resolves the guards for a transfer. Under the ordered strategy
// the guards are keyed by account id and returned in lexicographic order;
// a self-transfer resolves to a single guard.
func (s *TransferService) guardPair(fromID, toID string) (*Guard, *Guard) {
	if s.strategy != LockStrategyOrdered {
		return s.guardA, s.guardB
	}

	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	if first == second {
		return s.table.guardFor(first), nil
	}
	return s.table.guardFor(first), s.table.guardFor(second)
}

// ProcessAll runs the transfers one by one in input order. Failed items do
// not stop the rest; all failures come back in one BatchError.
func (s *TransferService) ProcessAll(ctx context.Context, requests []model.TransferRequest) error {
	var batch model.BatchError
	for i, req := range requests {
		if _, err := s.Transfer(ctx, req.FromAccountID, req.ToAccountID, req.Amount); err != nil {
			batch.Append(i, err)
		}
	}
	return batch.ErrOrNil()
}

// ProcessAllConcurrent fans the transfers out to the worker pool, waits for
// all of them, and aggregates failures into one BatchError. With no
// failures the resulting balances match the sequential form exactly.
func (s *TransferService) ProcessAllConcurrent(ctx context.Context, requests []model.TransferRequest) error {
	return runPool(ctx, s.workers, len(requests), func(ctx context.Context, i int) error {
		req := requests[i]
		_, err := s.Transfer(ctx, req.FromAccountID, req.ToAccountID, req.Amount)
		return err
	})
}

func (s *TransferService) publish(ctx context.Context, tx *model.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransfer(ctx, tx); err != nil {
		// Audit delivery is best effort; the transfer itself is already
		// durable at this point.
		s.log.Warn("failed to publish transfer event",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
	}
}
