// Package ledger defines the storage contracts the rest of the core is
// written against. The in-memory adapter is the development default; the
// postgres adapter implements the same contracts for durable deployments,
// so either can be injected without touching callers.
package ledger

import (
	"context"

	"github.com/pesatap/pesatap/internal/core/domain"
)

// NewAccount is the registration input. The PIN arrives already hashed;
// raw PINs never cross this boundary.
type NewAccount struct {
	Username        string
	PhoneNumber     string
	FullName        string
	Email           string
	PINHash         string
	EnableBiometric bool
}

// AccountStore is keyed storage of accounts and balances.
//
// ApplyBalanceDelta is the only balance mutation and must be serialized per
// account id: two concurrent deltas for the same account never interleave
// their read-modify-write. Deltas for different accounts may run in parallel.
type AccountStore interface {
	Create(ctx context.Context, in NewAccount) (*domain.Account, error)
	Get(ctx context.Context, id int64) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Account, error)
	ApplyBalanceDelta(ctx context.Context, id int64, delta domain.Money) (*domain.Account, error)
}

// AppendEntry is the input to a ledger append. The id and timestamp are
// assigned by the store; amount, fee and type are frozen at append time.
type AppendEntry struct {
	AccountID    int64
	Type         domain.TxType
	Amount       domain.Money
	Fee          domain.Money
	Counterparty string
	Channel      domain.Channel
	Status       domain.TxStatus
	OfflineSync  bool
}

// TransactionLedger is the append-only record of committed transactions.
// Append must be safe under concurrent callers without taking any account
// lock; ListByAccount returns a consistent snapshot in insertion order.
type TransactionLedger interface {
	Append(ctx context.Context, entry AppendEntry) (*domain.Transaction, error)
	Get(ctx context.Context, id int64) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error)
}
