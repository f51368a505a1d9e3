package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/1dlvb/async-bank-app/internal/model"
)

// MemoryStore is an in-memory Store for development and tests. A single
// mutex serializes every mutation, which makes per-account read-modify-write
// and the transfer debit/credit pair trivially atomic.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	deposits map[string]*model.Deposit
	txns     []*model.Transaction
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*model.Account),
		deposits: make(map[string]*model.Deposit),
	}
}

// Get returns a copy of the account so callers cannot mutate shared state.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, model.ErrAccountNotFound)
	}
	cp := *account
	return &cp, nil
}

// Create stores a new account and stamps its audit timestamps.
func (s *MemoryStore) Create(ctx context.Context, account *model.Account) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cp := *account
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.accounts[cp.ID] = &cp

	out := cp
	return &out, nil
}

// ApplyDelta adds delta to the account balance inside the store's critical
// section and returns the updated account.
func (s *MemoryStore) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, model.ErrAccountNotFound)
	}
	account.Balance = account.Balance.Add(delta)
	account.UpdatedAt = time.Now()

	cp := *account
	return &cp, nil
}

// ApplyTransfer debits fromID and credits toID in one critical section.
// Either both balances change or neither does.
func (s *MemoryStore) ApplyTransfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[fromID]
	if !ok {
		return fmt.Errorf("account %s: %w", fromID, model.ErrAccountNotFound)
	}
	to, ok := s.accounts[toID]
	if !ok {
		return fmt.Errorf("account %s: %w", toID, model.ErrAccountNotFound)
	}

	now := time.Now()
	from.Balance = from.Balance.Sub(amount)
	from.UpdatedAt = now
	to.Balance = to.Balance.Add(amount)
	to.UpdatedAt = now
	return nil
}

// GetDeposit returns a copy of the deposit.
func (s *MemoryStore) GetDeposit(ctx context.Context, id string) (*model.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deposit, ok := s.deposits[id]
	if !ok {
		return nil, fmt.Errorf("deposit %s: %w", id, model.ErrDepositNotFound)
	}
	cp := *deposit
	return &cp, nil
}

// CreateDeposit stores a new deposit.
func (s *MemoryStore) CreateDeposit(ctx context.Context, deposit *model.Deposit) (*model.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cp := *deposit
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.deposits[cp.ID] = &cp

	out := cp
	return &out, nil
}

// Append records a completed transfer. Records are never mutated afterwards.
func (s *MemoryStore) Append(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tx
	cp.CreatedAt = time.Now()
	s.txns = append(s.txns, &cp)

	out := cp
	return &out, nil
}

// Transactions returns a snapshot of the transaction log, oldest first.
func (s *MemoryStore) Transactions() []*model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Transaction, 0, len(s.txns))
	for _, tx := range s.txns {
		cp := *tx
		out = append(out, &cp)
	}
	return out
}

// Ping reports the store as always reachable.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
