package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/1dlvb/async-bank-app/internal/model"
	"github.com/1dlvb/async-bank-app/internal/store"
)

// Percentage tables for the what-if statistics: projected top-ups and
// withdrawals as a share of the deposit balance.
var (
	operationPercentages = []float64{0.05, 0.1, 0.15, 0.2}
	topUpPercentages     = []float64{0.05, 0.1, 0.15, 0.2}
	withdrawPercentages  = []float64{0.025, 0.05, 0.1, 0.15}
)

// ErrWithdrawExceedsTopUps rejects projections that withdraw more than they
// top up.
var ErrWithdrawExceedsTopUps = errors.New("withdraw cannot exceed top-ups")

// DepositService owns deposits and the statistics computed over them. The
// projection math is closed-form; the interesting part is the batch engine
// that evaluates it for many deposits concurrently.
type DepositService struct {
	deposits store.DepositStore
	accounts store.AccountStore
	workers  int
	log      *zap.Logger
}

// NewDepositService creates a deposit service. workers bounds the
// concurrency of batch statistics runs.
func NewDepositService(deposits store.DepositStore, accounts store.AccountStore, workers int, log *zap.Logger) *DepositService {
	return &DepositService{
		deposits: deposits,
		accounts: accounts,
		workers:  workers,
		log:      log,
	}
}

// GetDeposit returns the deposit or model.ErrDepositNotFound.
func (s *DepositService) GetDeposit(ctx context.Context, id string) (*model.Deposit, error) {
	return s.deposits.GetDeposit(ctx, id)
}

// CreateDeposit opens a deposit against an existing account.
func (s *DepositService) CreateDeposit(ctx context.Context, accountID string, balance, rate float64) (*model.Deposit, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	deposit := &model.Deposit{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Balance:   balance,
		Rate:      rate,
	}
	created, err := s.deposits.CreateDeposit(ctx, deposit)
	if err != nil {
		return nil, err
	}
	s.log.Info("deposit opened",
		zap.String("deposit_id", created.ID),
		zap.String("account_id", created.AccountID),
		zap.Float64("rate", created.Rate))
	return created, nil
}

// BalanceAtActualRate projects the deposit balance to the given date at the
// deposit's own rate.
func (s *DepositService) BalanceAtActualRate(date time.Time, deposit *model.Deposit) float64 {
	years := yearsUntil(date)
	return compoundInterest(deposit.Balance, deposit.Rate, years)
}

// BalanceAtRate projects the deposit balance to the given date at an
// alternative rate.
func (s *DepositService) BalanceAtRate(date time.Time, rate float64, deposit *model.Deposit) float64 {
	years := yearsUntil(date)
	return compoundInterest(deposit.Balance, rate, years)
}

// UpdatableBalance projects the balance assuming a fixed yearly operation
// (top-up when positive, withdrawal when negative) on top of the interest.
func (s *DepositService) UpdatableBalance(date time.Time, operation float64, deposit *model.Deposit) float64 {
	years := yearsUntil(date)
	return operation*operationRatio(deposit.Rate, years) +
		compoundInterest(deposit.Balance, deposit.Rate, years)
}

// UpdatableBalanceWithWithdrawals projects the balance with fixed yearly
// top-ups and withdrawals applied together.
func (s *DepositService) UpdatableBalanceWithWithdrawals(date time.Time, topUps, withdraw float64, deposit *model.Deposit) (float64, error) {
	if withdraw > topUps {
		return 0, ErrWithdrawExceedsTopUps
	}
	years := yearsUntil(date)
	return compoundInterest(deposit.Balance, deposit.Rate, years) +
		operationRatio(deposit.Rate, years)*(topUps-withdraw), nil
}

// CalculationsByDateAndRate computes the full statistics map for one
// deposit: the projected balance at its own and at the supplied rate, plus
// the what-if top-up and top-up/withdraw tables. Values are formatted with
// three decimal places.
func (s *DepositService) CalculationsByDateAndRate(ctx context.Context, date time.Time, rate float64, depositID string) (map[string]string, error) {
	deposit, err := s.deposits.GetDeposit(ctx, depositID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	out["balance_by_rate"] = formatBalance(s.BalanceAtRate(date, rate, deposit))
	out["balance_with_actual_rate"] = formatBalance(s.BalanceAtActualRate(date, deposit))

	for _, pct := range operationPercentages {
		topUp := deposit.Balance * pct
		key := fmt.Sprintf("balance_with_%d_percents_top_ups", int(pct*100))
		out[key] = formatBalance(s.UpdatableBalance(date, topUp, deposit))
	}

	for i, pct := range topUpPercentages {
		withdrawPct := withdrawPercentages[i%len(withdrawPercentages)]
		topUp := deposit.Balance * pct
		withdraw := -deposit.Balance * withdrawPct
		balance, err := s.UpdatableBalanceWithWithdrawals(date, topUp, withdraw, deposit)
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("balance_with_%d_percents_top_ups_and_%d_percents_withdraw",
			int(pct*100), int(math.Abs(withdrawPct*100)))
		out[key] = formatBalance(balance)
	}

	return out, nil
}

// CalculationsForDeposits evaluates the statistics for every deposit id in
// input order. Any missing deposit fails the whole computation.
func (s *DepositService) CalculationsForDeposits(ctx context.Context, date time.Time, rate float64, depositIDs []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(depositIDs))
	for _, id := range depositIDs {
		calc, err := s.CalculationsByDateAndRate(ctx, date, rate, id)
		if err != nil {
			return nil, fmt.Errorf("deposit %s: %w", id, err)
		}
		out[id] = calc
	}
	return out, nil
}

// CalculationsForDepositsConcurrent is the fan-out form. One task per
// deposit runs on a bounded group; the first failure cancels the siblings
// and is returned after all tasks have been awaited. On success the mapping
// is identical to the sequential form regardless of completion order.
func (s *DepositService) CalculationsForDepositsConcurrent(ctx context.Context, date time.Time, rate float64, depositIDs []string) (map[string]map[string]string, error) {
	group, ctx := errgroup.WithContext(ctx)
	if s.workers > 0 {
		group.SetLimit(s.workers)
	}

	results := make([]map[string]string, len(depositIDs))
	for i, id := range depositIDs {
		i, id := i, id
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			calc, err := s.CalculationsByDateAndRate(ctx, date, rate, id)
			if err != nil {
				return fmt.Errorf("deposit %s: %w", id, err)
			}
			results[i] = calc
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]map[string]string, len(depositIDs))
	for i, id := range depositIDs {
		out[id] = results[i]
	}
	return out, nil
}

func formatBalance(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func yearsUntil(date time.Time) float64 {
	return float64(date.Year() - time.Now().Year())
}

// compoundInterest is P(1 + r/100)^t for a yearly percentage rate.
func compoundInterest(principal, ratePercent, years float64) float64 {
	return principal * math.Pow(1+0.01*ratePercent, years)
}

// operationRatio is the future-value annuity factor for a fixed yearly
// operation at the given percentage rate.
func operationRatio(ratePercent, years float64) float64 {
	return (math.Pow(1+0.01*ratePercent, years) - 1) / (0.01 * ratePercent)
}
