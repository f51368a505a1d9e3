package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/1dlvb/async-bank-app/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         UUID PRIMARY KEY,
	owner      TEXT NOT NULL,
	balance    NUMERIC(20, 6) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS deposits (
	id         UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts (id),
	balance    DOUBLE PRECISION NOT NULL,
	rate       DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id              UUID PRIMARY KEY,
	from_account_id UUID NOT NULL REFERENCES accounts (id),
	to_account_id   UUID NOT NULL REFERENCES accounts (id),
	amount          NUMERIC(20, 6) NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore is the production Store backed by Postgres via database/sql.
// Single-account mutations ride on one UPDATE statement; the transfer pair
// runs in an explicit transaction with row locks taken in id order so two
// overlapping transfers cannot deadlock inside the database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to Postgres, verifies connectivity and creates
// the schema when missing.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Get loads one account by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner, balance, created_at, updated_at FROM accounts WHERE id = $1`, id).
		Scan(&account.ID, &account.Owner, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", id, model.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("could not get account: %w", err)
	}
	return account, nil
}

// Create inserts a new account.
func (s *PostgresStore) Create(ctx context.Context, account *model.Account) (*model.Account, error) {
	out := *account
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO accounts (id, owner, balance) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		account.ID, account.Owner, account.Balance).
		Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("could not create account: %w", err)
	}
	return &out, nil
}

// ApplyDelta adds delta to the stored balance. The single UPDATE is the
// per-aggregate atomicity boundary: concurrent deltas on one row serialize
// inside Postgres and none are lost.
func (s *PostgresStore) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (*model.Account, error) {
	account := &model.Account{}
	err := s.db.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + $1, updated_at = now()
		 WHERE id = $2
		 RETURNING id, owner, balance, created_at, updated_at`, delta, id).
		Scan(&account.ID, &account.Owner, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", id, model.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("could not update balance: %w", err)
	}
	return account, nil
}

// ApplyTransfer applies the debit/credit pair inside one database
// transaction. Rows are locked in lexicographic id order.
func (s *PostgresStore) ApplyTransfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transfer transaction: %w", err)
	}
	defer tx.Rollback()

	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	for _, id := range []string{first, second} {
		if err := lockAccountRow(ctx, tx, id); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - $1, updated_at = now() WHERE id = $2`, amount, fromID); err != nil {
		return fmt.Errorf("could not debit account %s: %w", fromID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $1, updated_at = now() WHERE id = $2`, amount, toID); err != nil {
		return fmt.Errorf("could not credit account %s: %w", toID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transfer: %w", err)
	}
	return nil
}

func lockAccountRow(ctx context.Context, tx *sql.Tx, id string) error {
	var locked string
	err := tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %s: %w", id, model.ErrAccountNotFound)
		}
		return fmt.Errorf("could not lock account %s: %w", id, err)
	}
	return nil
}

// GetDeposit loads one deposit by id.
func (s *PostgresStore) GetDeposit(ctx context.Context, id string) (*model.Deposit, error) {
	deposit := &model.Deposit{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, balance, rate, created_at, updated_at FROM deposits WHERE id = $1`, id).
		Scan(&deposit.ID, &deposit.AccountID, &deposit.Balance, &deposit.Rate, &deposit.CreatedAt, &deposit.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deposit %s: %w", id, model.ErrDepositNotFound)
		}
		return nil, fmt.Errorf("could not get deposit: %w", err)
	}
	return deposit, nil
}

// CreateDeposit inserts a new deposit.
func (s *PostgresStore) CreateDeposit(ctx context.Context, deposit *model.Deposit) (*model.Deposit, error) {
	out := *deposit
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO deposits (id, account_id, balance, rate) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
		deposit.ID, deposit.AccountID, deposit.Balance, deposit.Rate).
		Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("could not create deposit: %w", err)
	}
	return &out, nil
}

// Append inserts a transaction record. The log is write-once: no update or
// delete statements exist for this table.
func (s *PostgresStore) Append(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	out := *txn
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO transactions (id, from_account_id, to_account_id, amount)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		txn.ID, txn.FromAccountID, txn.ToAccountID, txn.Amount).
		Scan(&out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("could not append transaction: %w", err)
	}
	return &out, nil
}

// Ping checks database connectivity for readiness probes.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
