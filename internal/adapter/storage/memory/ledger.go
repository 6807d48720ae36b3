package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/ledger"
)

// TransactionLedger is the in-memory append-only transaction record.
// It takes only its own lock; id assignment never waits on an account.
type TransactionLedger struct {
	mu     sync.RWMutex
	byID   map[int64]*domain.Transaction
	order  []int64
	nextID int64
}

// NewTransactionLedger creates an empty in-memory ledger.
func NewTransactionLedger() *TransactionLedger {
	return &TransactionLedger{
		byID:   make(map[int64]*domain.Transaction),
		nextID: 1,
	}
}

// Append assigns the next monotonic id, stamps the commit time and stores
// the record. Records are never mutated afterwards.
func (l *TransactionLedger) Append(ctx context.Context, entry ledger.AppendEntry) (*domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &domain.Transaction{
		ID:           l.nextID,
		AccountID:    entry.AccountID,
		Type:         entry.Type,
		Amount:       entry.Amount,
		Fee:          entry.Fee,
		Counterparty: entry.Counterparty,
		Channel:      entry.Channel,
		Status:       entry.Status,
		OfflineSync:  entry.OfflineSync,
		CreatedAt:    time.Now().UTC(),
	}
	l.nextID++
	l.byID[tx.ID] = tx
	l.order = append(l.order, tx.ID)

	cp := *tx
	return &cp, nil
}

// Get returns a copy of a committed transaction.
func (l *TransactionLedger) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tx, ok := l.byID[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

// ListByAccount returns the account's transactions in insertion order.
// The result is a snapshot of copies as of call time; re-querying picks up
// records appended since.
func (l *TransactionLedger) ListByAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*domain.Transaction
	for _, id := range l.order {
		tx := l.byID[id]
		if tx.AccountID != accountID {
			continue
		}
		cp := *tx
		result = append(result, &cp)
	}
	return result, nil
}
