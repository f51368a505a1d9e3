package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/model"
	"github.com/1dlvb/async-bank-app/internal/store"
)

func newAccountFixture(t *testing.T) (*AccountService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewAccountService(st, 4, zap.NewNop()), st
}

func mustCreateAccount(t *testing.T, svc *AccountService, owner string, balance int64) *model.Account {
	t.Helper()
	account, err := svc.Create(context.Background(), owner, decimal.NewFromInt(balance))
	require.NoError(t, err)
	return account
}

func TestCreateAndFindAccount(t *testing.T) {
	svc, _ := newAccountFixture(t)

	created := mustCreateAccount(t, svc, "Test LLC", 50000)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := svc.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Test LLC", found.Owner)
	assert.True(t, found.Balance.Equal(decimal.NewFromInt(50000)))
}

func TestFindMissingAccount(t *testing.T) {
	svc, _ := newAccountFixture(t)

	_, err := svc.FindByID(context.Background(), "no-such-account")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestRepeatedGetReturnsIdenticalSnapshot(t *testing.T) {
	svc, _ := newAccountFixture(t)
	account := mustCreateAccount(t, svc, "owner", 1234)

	first, err := svc.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	second, err := svc.FindByID(context.Background(), account.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Owner, second.Owner)
	assert.True(t, first.Balance.Equal(second.Balance))
}

func TestUpdateBalanceAppliesSignedDelta(t *testing.T) {
	svc, _ := newAccountFixture(t)
	account := mustCreateAccount(t, svc, "owner", 100)

	updated, err := svc.UpdateBalance(context.Background(), account.ID, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(300)))

	updated, err = svc.UpdateBalance(context.Background(), account.ID, decimal.NewFromInt(-50))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(250)))
}

func TestUpdateBalanceMissingAccount(t *testing.T) {
	svc, _ := newAccountFixture(t)

	_, err := svc.UpdateBalance(context.Background(), "missing", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

// Concurrent deltas on one account must all land: no lost updates under any
// scheduling.
func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	svc, _ := newAccountFixture(t)
	account := mustCreateAccount(t, svc, "owner", 1000)

	const n = 100
	delta := decimal.NewFromInt(10)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateBalance(context.Background(), account.ID, delta)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := svc.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, final.Balance.Equal(decimal.NewFromInt(2000)),
		"expected 2000, got %s", final.Balance)
}

func TestUpdateBalancesSequentialAndConcurrentAgree(t *testing.T) {
	seqSvc, _ := newAccountFixture(t)
	concSvc, _ := newAccountFixture(t)

	buildUpdates := func(svc *AccountService) ([]model.BalanceUpdate, []string) {
		var updates []model.BalanceUpdate
		var ids []string
		for i := 0; i < 5; i++ {
			account := mustCreateAccount(t, svc, "owner", 100)
			ids = append(ids, account.ID)
			updates = append(updates,
				model.BalanceUpdate{AccountID: account.ID, Amount: decimal.NewFromInt(int64(i + 1))})
		}
		return updates, ids
	}

	seqUpdates, seqIDs := buildUpdates(seqSvc)
	concUpdates, concIDs := buildUpdates(concSvc)

	require.NoError(t, seqSvc.UpdateBalances(context.Background(), seqUpdates))
	require.NoError(t, concSvc.UpdateBalancesConcurrent(context.Background(), concUpdates))

	for i := range seqIDs {
		seqAccount, err := seqSvc.FindByID(context.Background(), seqIDs[i])
		require.NoError(t, err)
		concAccount, err := concSvc.FindByID(context.Background(), concIDs[i])
		require.NoError(t, err)
		assert.True(t, seqAccount.Balance.Equal(concAccount.Balance))
	}
}

// A failed item must not stop the rest of a best-effort batch.
func TestUpdateBalancesIsBestEffort(t *testing.T) {
	svc, _ := newAccountFixture(t)
	first := mustCreateAccount(t, svc, "owner", 100)
	second := mustCreateAccount(t, svc, "owner", 100)

	err := svc.UpdateBalances(context.Background(), []model.BalanceUpdate{
		{AccountID: first.ID, Amount: decimal.NewFromInt(10)},
		{AccountID: "missing", Amount: decimal.NewFromInt(10)},
		{AccountID: second.ID, Amount: decimal.NewFromInt(20)},
	})

	var batch *model.BatchError
	require.True(t, errors.As(err, &batch))
	require.Len(t, batch.Items, 1)
	assert.Equal(t, 1, batch.Items[0].Index)
	assert.ErrorIs(t, batch.Items[0].Err, model.ErrAccountNotFound)

	firstAfter, err := svc.FindByID(context.Background(), first.ID)
	require.NoError(t, err)
	secondAfter, err := svc.FindByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.True(t, firstAfter.Balance.Equal(decimal.NewFromInt(110)))
	assert.True(t, secondAfter.Balance.Equal(decimal.NewFromInt(120)))
}
