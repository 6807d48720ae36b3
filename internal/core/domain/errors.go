package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound means no account exists for the given id or lookup key.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTransactionNotFound means no committed transaction has the given id.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrDuplicateUsername means the username is already registered.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicatePhoneNumber means the phone number is already registered.
	ErrDuplicatePhoneNumber = errors.New("phone number already registered")
	// ErrInvalidAmount means the amount is zero, negative or malformed.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrInvalidType means the transaction type is not send or receive.
	ErrInvalidType = errors.New("unknown transaction type")
	// ErrInvalidChannel means the payment channel tag is not recognized.
	ErrInvalidChannel = errors.New("unknown payment channel")
	// ErrSyncInFlight means a reconciliation run is already draining the queue.
	ErrSyncInFlight = errors.New("sync already in progress")
)

// SettlementInconsistencyError reports that a ledger append and its balance
// update disagree. It is never swallowed: callers must log and surface it
// distinctly from ordinary not-found or validation failures.
type SettlementInconsistencyError struct {
	TransactionID int64
	AccountID     int64
	// BalanceErr is the failure that broke the atomic unit.
	BalanceErr error
	// ReversalErr is non-nil when the compensating reversal also failed,
	// leaving the ledger and balance out of sync.
	ReversalErr error
	// Reversed is true when a compensating entry was appended successfully.
	Reversed bool
}

func (e *SettlementInconsistencyError) Error() string {
	if e.ReversalErr != nil {
		return fmt.Sprintf("settlement inconsistency: tx %d on account %d: balance update failed (%v) and reversal failed (%v)",
			e.TransactionID, e.AccountID, e.BalanceErr, e.ReversalErr)
	}
	return fmt.Sprintf("settlement reversed: tx %d on account %d: balance update failed (%v)",
		e.TransactionID, e.AccountID, e.BalanceErr)
}

func (e *SettlementInconsistencyError) Unwrap() error { return e.BalanceErr }
