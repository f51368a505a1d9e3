package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/model"
	"github.com/1dlvb/async-bank-app/internal/store"
)

func newDepositFixture(t *testing.T) (*DepositService, *AccountService) {
	t.Helper()
	st := store.NewMemoryStore()
	accounts := NewAccountService(st, 4, zap.NewNop())
	deposits := NewDepositService(st, st, 4, zap.NewNop())
	return deposits, accounts
}

func mustOpenDeposit(t *testing.T, deposits *DepositService, accounts *AccountService, balance, rate float64) *model.Deposit {
	t.Helper()
	account := mustCreateAccount(t, accounts, "owner", 1000)
	deposit, err := deposits.CreateDeposit(context.Background(), account.ID, balance, rate)
	require.NoError(t, err)
	return deposit
}

// Projection date two calendar years out, so the year arithmetic is stable
// regardless of when the test runs.
func twoYearsOut() time.Time {
	return time.Date(time.Now().Year()+2, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func TestCreateDepositRequiresAccount(t *testing.T) {
	deposits, _ := newDepositFixture(t)

	_, err := deposits.CreateDeposit(context.Background(), "no-such-account", 1000, 10)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestCreateAndGetDeposit(t *testing.T) {
	deposits, accounts := newDepositFixture(t)
	created := mustOpenDeposit(t, deposits, accounts, 1000, 10)

	found, err := deposits.GetDeposit(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.AccountID, found.AccountID)
	assert.Equal(t, 1000.0, found.Balance)
	assert.Equal(t, 10.0, found.Rate)

	_, err = deposits.GetDeposit(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrDepositNotFound)
}

// 1000 at 10% compounded over two years is 1210; at 5% it is 1102.50.
func TestCompoundInterestProjections(t *testing.T) {
	deposits, accounts := newDepositFixture(t)
	deposit := mustOpenDeposit(t, deposits, accounts, 1000, 10)
	date := twoYearsOut()

	assert.Equal(t, "1210.000", formatBalance(deposits.BalanceAtActualRate(date, deposit)))
	assert.Equal(t, "1102.500", formatBalance(deposits.BalanceAtRate(date, 5, deposit)))
}

func TestUpdatableBalanceAddsAnnuityOnTop(t *testing.T) {
	deposits, accounts := newDepositFixture(t)
	deposit := mustOpenDeposit(t, deposits, accounts, 1000, 10)
	date := twoYearsOut()

	// Annuity factor at 10% over 2 years is 2.1, so a fixed yearly top-up
	// of 50 adds 105 on top of the compounded 1210.
	assert.Equal(t, "1315.000", formatBalance(deposits.UpdatableBalance(date, 50, deposit)))
}

func TestUpdatableBalanceWithWithdrawals(t *testing.T) {
	deposits, accounts := newDepositFixture(t)
	deposit := mustOpenDeposit(t, deposits, accounts, 1000, 10)
	date := twoYearsOut()

	balance, err := deposits.UpdatableBalanceWithWithdrawals(date, 50, -25, deposit)
	require.NoError(t, err)
	assert.Equal(t, "1367.500", formatBalance(balance))

	_, err = deposits.UpdatableBalanceWithWithdrawals(date, 50, 60, deposit)
	assert.ErrorIs(t, err, ErrWithdrawExceedsTopUps)
}

func TestCalculationsByDateAndRateKeys(t *testing.T) {
	deposits, accounts := newDepositFixture(t)
	deposit := mustOpenDeposit(t, deposits, accounts, 1000, 10)

	calc, err := deposits.CalculationsByDateAndRate(context.Background(), twoYearsOut(), 5, deposit.ID)
	require.NoError(t, err)
	require.Len(t, calc, 10)

	assert.Equal(t, "1102.500", calc["balance_by_rate"])
	assert.Equal(t, "1210.000", calc["balance_with_actual_rate"])
	assert.Equal(t, "1315.000", calc["balance_with_5_percents_top_ups"])
	assert.Equal(t, "1367.500", calc["balance_with_5_percents_top_ups_and_2_percents_withdraw"])

	for _, key := range []string{
		"balance_with_10_percents_top_ups",
		"balance_with_15_percents_top_ups",
		"balance_with_20_percents_top_ups",
		"balance_with_10_percents_top_ups_and_5_percents_withdraw",
		"balance_with_15_percents_top_ups_and_10_percents_withdraw",
		"balance_with_20_percents_top_ups_and_15_percents_withdraw",
	} {
		assert.Contains(t, calc, key)
	}
}

func TestCalculationsByDateAndRateMissingDeposit(t *testing.T) {
	deposits, _ := newDepositFixture(t)

	_, err := deposits.CalculationsByDateAndRate(context.Background(), twoYearsOut(), 5, "missing")
	assert.ErrorIs(t, err, model.ErrDepositNotFound)
}

// The concurrent batch must map every id to the same statistics as the
// sequential run, no matter what order the tasks finish in.
func TestCalculationsSequentialAndConcurrentAgree(t *testing.T) {
	deposits, accounts := newDepositFixture(t)
	date := twoYearsOut()

	var ids []string
	for i := 0; i < 6; i++ {
		deposit := mustOpenDeposit(t, deposits, accounts, 1000+float64(i)*250, 5+float64(i))
		ids = append(ids, deposit.ID)
	}

	sequential, err := deposits.CalculationsForDeposits(context.Background(), date, 8, ids)
	require.NoError(t, err)
	concurrent, err := deposits.CalculationsForDepositsConcurrent(context.Background(), date, 8, ids)
	require.NoError(t, err)

	assert.Equal(t, sequential, concurrent)
}

func TestCalculationsConcurrentFailsFastOnMissingDeposit(t *testing.T) {
	deposits, accounts := newDepositFixture(t)
	deposit := mustOpenDeposit(t, deposits, accounts, 1000, 10)

	_, err := deposits.CalculationsForDepositsConcurrent(context.Background(), twoYearsOut(), 5,
		[]string{deposit.ID, "missing", deposit.ID})
	assert.ErrorIs(t, err, model.ErrDepositNotFound)
}

func TestCalculationsSequentialFailsOnMissingDeposit(t *testing.T) {
	deposits, accounts := newDepositFixture(t)
	deposit := mustOpenDeposit(t, deposits, accounts, 1000, 10)

	_, err := deposits.CalculationsForDeposits(context.Background(), twoYearsOut(), 5,
		[]string{deposit.ID, "missing"})
	assert.ErrorIs(t, err, model.ErrDepositNotFound)
}
