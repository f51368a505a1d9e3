package model

import (
	"errors"
	"fmt"
	"strings"
)

// Domain error taxonomy. Services wrap these with context via %w so callers
// can match with errors.Is.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrDepositNotFound   = errors.New("deposit not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLockTimeout       = errors.New("lock acquisition timed out, potential deadlock avoided")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// ItemError records the failure of one item inside a batch.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// BatchError aggregates the failures of a best-effort batch. Successful
// items are already applied when a BatchError is returned.
type BatchError struct {
	Items []ItemError
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		msgs = append(msgs, item.Error())
	}
	return fmt.Sprintf("%d of batch items failed: %s", len(e.Items), strings.Join(msgs, "; "))
}

// Append records a failed item. Nil errors are ignored.
func (e *BatchError) Append(index int, err error) {
	if err == nil {
		return
	}
	e.Items = append(e.Items, ItemError{Index: index, Err: err})
}

// ErrOrNil returns the aggregate error, or nil when every item succeeded.
func (e *BatchError) ErrOrNil() error {
	if len(e.Items) == 0 {
		return nil
	}
	return e
}
