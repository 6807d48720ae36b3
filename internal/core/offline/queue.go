// Package offline holds the client-resident pending queue and the sync
// reconciler that drains it against the settlement engine.
package offline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pesatap/pesatap/internal/core/domain"
)

// Queue buffers transactions created while disconnected. Entries keep
// enqueue order and are keyed by a provisional UUID — an id space disjoint
// from the ledger's serials, so a queued entry can never be mistaken for a
// committed one.
//
// The queue also carries its own sync flag: at most one reconciliation run
// may drain it at a time, no matter how many reconcilers point at it.
type Queue struct {
	mu      sync.Mutex
	entries []*domain.PendingTransaction
	syncing atomic.Bool
}

// NewQueue creates an empty offline queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue records an intended transaction locally, with no network round
// trip. The entry comes back immediately with status pending.
func (q *Queue) Enqueue(accountID int64, txType domain.TxType, amount domain.Money, counterparty string, channel domain.Channel) *domain.PendingTransaction {
	entry := &domain.PendingTransaction{
		ProvisionalID: uuid.New(),
		AccountID:     accountID,
		Type:          txType,
		Amount:        amount,
		Counterparty:  counterparty,
		Channel:       channel,
		Status:        domain.StatusPending,
		OfflineSync:   true,
		CreatedAt:     time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry)

	cp := *entry
	return &cp
}

// List returns the queued entries in enqueue order, as copies.
func (q *Queue) List() []*domain.PendingTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]*domain.PendingTransaction, 0, len(q.entries))
	for _, entry := range q.entries {
		cp := *entry
		result = append(result, &cp)
	}
	return result
}

// Remove drops a reconciled entry. Removing an id that is no longer queued
// is a no-op, which is what makes reconciliation retry-safe.
func (q *Queue) Remove(id domain.ProvisionalID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, entry := range q.entries {
		if entry.ProvisionalID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// beginSync claims the queue for a reconciliation run. It returns false if
// another run is already draining this queue.
func (q *Queue) beginSync() bool {
	return q.syncing.CompareAndSwap(false, true)
}

// endSync releases the claim taken by beginSync.
func (q *Queue) endSync() {
	q.syncing.Store(false)
}

// Len reports the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
